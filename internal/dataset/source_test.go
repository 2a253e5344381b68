package dataset_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imdb-titles/internal/dataset"
	"imdb-titles/internal/platform/httpclient"
	"imdb-titles/internal/shared"
)

func TestOpener_HTTP(t *testing.T) {
	body := gzipped(t, sample)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/title.basics.tsv.gz" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	o := dataset.NewOpener(httpclient.New(httpclient.WithLogger(quiet)))
	repo := &recordingRepo{}
	im := dataset.NewImporter(repo, dataset.WithLogger(quiet))

	st, err := im.ImportSource(context.Background(), o, srv.URL+"/title.basics.tsv.gz")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Imported)

	_, err = o.Open(context.Background(), srv.URL+"/missing.tsv")
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestOpener_HTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := dataset.NewOpener(httpclient.New(httpclient.WithLogger(quiet)))
	_, err := o.Open(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, shared.IsDependencyFailure(err))
}

func TestOpener_LocalFile(t *testing.T) {
	o := dataset.NewOpener(nil)

	rc, err := o.Open(context.Background(), "testdata/title.basics.tsv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Contains(t, string(data), "Carmencita")

	_, err = o.Open(context.Background(), "testdata/absent.tsv")
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
