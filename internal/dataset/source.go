package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"imdb-titles/internal/platform/httpclient"
	"imdb-titles/internal/shared"
)

// DefaultSource is the public IMDb title.basics dump.
const DefaultSource = "https://datasets.imdbws.com/title.basics.tsv.gz"

// Opener opens a dataset from a local path or an http(s) URL.
type Opener struct {
	client *httpclient.Client
}

// NewOpener returns an Opener downloading through client. A nil client gets
// retries and no overall timeout.
func NewOpener(client *httpclient.Client) *Opener {
	if client == nil {
		client = httpclient.New(httpclient.WithTimeout(0), httpclient.WithRetries(3, 0))
	}
	return &Opener{client: client}
}

// Open returns the dataset stream; the caller closes it. A missing local
// file is marked shared.KindNotFound.
func (o *Opener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if isURL(source) {
		resp, err := o.client.Get(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("download dataset: %w", err)
		}
		return resp.Body, nil
	}

	f, err := os.Open(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, shared.MarkKind(fmt.Errorf("open dataset: %w", err), shared.KindNotFound)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}

// ImportSource opens source and runs im over it.
func (im *Importer) ImportSource(ctx context.Context, o *Opener, source string) (Stats, error) {
	rc, err := o.Open(ctx, source)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()

	return im.Import(ctx, rc)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
