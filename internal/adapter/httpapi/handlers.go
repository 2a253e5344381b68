package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imdb-titles/internal/platform/logger"
	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

// statusClientClosedRequest is nginx's code for a request the client gave up on.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

type startYearRequest struct {
	StartYear *int32 `json:"start_year" binding:"required"`
}

// Healthz pings the store.
func (h *Handler) Healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			logger.FromContext(c.Request.Context()).Warn("health check failed", slog.Any("error", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetTitle returns one title by tconst.
func (h *Handler) GetTitle(c *gin.Context) {
	rec, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateTitle stores a title from a mapping object. Values may be strings or
// numbers; null means absent.
func (h *Handler) CreateTitle(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.fail(c, shared.MarkKind(err, shared.KindValidation))
		return
	}
	fields, err := decodeMapping(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	rec, err := title.ParseMapping(fields)
	if err == nil && rec.ID() == "" {
		err = fmt.Errorf("mapping key %q is empty: %w", title.KeyID, title.ErrMissingID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.repo.Put(c.Request.Context(), rec); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", "/titles/"+rec.ID())
	c.JSON(http.StatusCreated, rec)
}

// SetStartYear replaces the start year of an existing title.
func (h *Handler) SetStartYear(c *gin.Context) {
	var req startYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, shared.MarkKind(err, shared.KindValidation))
		return
	}

	ctx := c.Request.Context()
	rec, err := h.repo.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rec.SetStartYear(*req.StartYear)

	if err := h.repo.Put(ctx, rec); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := shared.KindOf(err)
	status := StatusFor(kind)

	msg := err.Error()
	if status >= 500 {
		logger.FromContext(c.Request.Context()).Error("request failed", slog.String("kind", kind.String()), slog.Any("error", err))
		msg = http.StatusText(status)
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Error:     msg,
		Kind:      kind.String(),
		RequestID: c.GetString(ctxKeyRequestID),
	})
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindTimeout:
		return http.StatusGatewayTimeout
	case shared.KindDependencyFailure:
		return http.StatusServiceUnavailable
	case shared.KindCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeMapping turns a JSON object into mapping fields. Numbers keep their
// literal text so title.ParseMapping decides what a valid year is.
func decodeMapping(raw []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, shared.MarkKind(fmt.Errorf("decode body: %w", err), shared.KindValidation)
	}
	if obj == nil {
		return nil, shared.MarkKind(fmt.Errorf("body must be a JSON object"), shared.KindValidation)
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case nil:
		case string:
			fields[k] = x
		case json.Number:
			fields[k] = x.String()
		default:
			return nil, shared.MarkKind(fmt.Errorf("field %q: want string or number, got %T", k, v), shared.KindValidation)
		}
	}
	return fields, nil
}
