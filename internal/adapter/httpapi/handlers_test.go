package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imdb-titles/internal/adapter/httpapi"
	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memRepo struct {
	records map[string]title.Record
	getErr  error
	putErr  error
}

func (r *memRepo) Get(_ context.Context, id string) (title.Record, error) {
	if r.getErr != nil {
		return title.Record{}, r.getErr
	}
	rec, ok := r.records[id]
	if !ok {
		return title.Record{}, shared.MarkKind(errors.New("no rows in result set"), shared.KindNotFound)
	}
	return rec, nil
}

func (r *memRepo) Put(_ context.Context, records ...title.Record) error {
	if r.putErr != nil {
		return r.putErr
	}
	for _, rec := range records {
		r.records[rec.ID()] = rec
	}
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newRouter(repo *memRepo, health httpapi.HealthChecker) *gin.Engine {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.NewRouter(httpapi.NewHandler(repo, health, log))
}

func seeded() *memRepo {
	return &memRepo{records: map[string]title.Record{
		"tt000001": title.FromMapping(map[string]string{
			"id":            "tt000001",
			"title_type":    "documentary",
			"primary_title": "The Blue Planet",
			"start_year":    "1999",
		}),
	}}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetTitle(t *testing.T) {
	r := newRouter(seeded(), nil)

	w := do(r, http.MethodGet, "/titles/tt000001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"tt000001","title_type":"documentary","primary_title":"The Blue Planet","start_year":1999}`, w.Body.String())
}

func TestGetTitle_NotFound(t *testing.T) {
	r := newRouter(seeded(), nil)

	w := do(r, http.MethodGet, "/titles/tt404", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NotFound", body["kind"])
	assert.Equal(t, w.Header().Get(httpapi.HeaderRequestID), body["request_id"])
}

func TestGetTitle_StoreFailureHidesDetails(t *testing.T) {
	repo := seeded()
	repo.getErr = shared.MarkKind(errors.New("dial tcp 10.0.0.1:5432: connection refused"), shared.KindDependencyFailure)
	r := newRouter(repo, nil)

	w := do(r, http.MethodGet, "/titles/tt000001", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestCreateTitle(t *testing.T) {
	repo := &memRepo{records: map[string]title.Record{}}
	r := newRouter(repo, nil)

	w := do(r, http.MethodPost, "/titles", `{"id":"tt7","title_type":"movie","start_year":2001}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/titles/tt7", w.Header().Get("Location"))

	rec, ok := repo.records["tt7"]
	require.True(t, ok)
	year, ok := rec.StartYear()
	assert.True(t, ok)
	assert.EqualValues(t, 2001, year)
	_, ok = rec.PrimaryTitle()
	assert.False(t, ok)
}

func TestCreateTitle_LenientYear(t *testing.T) {
	repo := &memRepo{records: map[string]title.Record{}}
	r := newRouter(repo, nil)

	w := do(r, http.MethodPost, "/titles", `{"id":"tt8","start_year":"unknown","primary_title":null}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"tt8"}`, w.Body.String())
}

func TestCreateTitle_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"title_type":"movie"}`},
		{"empty id", `{"id":"","title_type":"movie"}`},
		{"null id", `{"id":null}`},
		{"not json", `{`},
		{"not an object", `["tt1"]`},
		{"null body", `null`},
		{"nested value", `{"id":"tt1","primary_title":{"en":"x"}}`},
		{"boolean value", `{"id":"tt1","title_type":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{records: map[string]title.Record{}}
			w := do(newRouter(repo, nil), http.MethodPost, "/titles", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, repo.records)
		})
	}
}

func TestCreateTitle_Conflict(t *testing.T) {
	repo := &memRepo{records: map[string]title.Record{}, putErr: shared.MarkKind(errors.New("duplicate key"), shared.KindConflict)}
	w := do(newRouter(repo, nil), http.MethodPost, "/titles", `{"id":"tt1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetStartYear(t *testing.T) {
	repo := seeded()
	r := newRouter(repo, nil)

	w := do(r, http.MethodPut, "/titles/tt000001/start-year", `{"start_year":1998}`)
	require.Equal(t, http.StatusOK, w.Code)

	year, ok := repo.records["tt000001"].StartYear()
	assert.True(t, ok)
	assert.EqualValues(t, 1998, year)
	name, _ := repo.records["tt000001"].PrimaryTitle()
	assert.Equal(t, "The Blue Planet", name)
}

func TestSetStartYear_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown title", "/titles/tt404/start-year", `{"start_year":1998}`, http.StatusNotFound},
		{"missing field", "/titles/tt000001/start-year", `{}`, http.StatusBadRequest},
		{"text year", "/titles/tt000001/start-year", `{"start_year":"1998"}`, http.StatusBadRequest},
		{"out of range", "/titles/tt000001/start-year", `{"start_year":99999999999}`, http.StatusBadRequest},
		{"empty body", "/titles/tt000001/start-year", ``, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(seeded(), nil), http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	w := do(newRouter(seeded(), pinger{}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(newRouter(seeded(), pinger{err: shared.ErrDependencyFailure}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestID(t *testing.T) {
	r := newRouter(seeded(), nil)

	w := do(r, http.MethodGet, "/healthz", "")
	_, err := uuid.Parse(w.Header().Get(httpapi.HeaderRequestID))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpapi.HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httpapi.HeaderRequestID))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind shared.Kind
		want int
	}{
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindValidation, http.StatusBadRequest},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindTimeout, http.StatusGatewayTimeout},
		{shared.KindDependencyFailure, http.StatusServiceUnavailable},
		{shared.KindCanceled, 499},
		{shared.KindInternal, http.StatusInternalServerError},
		{shared.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, httpapi.StatusFor(tt.kind))
		})
	}
}
