// Package handlers – response helpers.
//
// All endpoints answer JSON. Failures use ErrorResponse; 5xx failures are
// logged with the request-scoped logger before the body is written.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID for log correlation.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code (see errors.go).
	Code string `json:"code" example:"duplicate_number"`
	// Human-readable message.
	Message string `json:"message" example:"document number already registered"`
}

// MessageResponse is returned by operations that have nothing else to say.
type MessageResponse struct {
	Message string `json:"message" example:"Document deleted successfully"`
}

func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code)
		if len(c.Errors) > 0 {
			ev = ev.Str("cause", c.Errors.Last().Error())
		}
		ev.Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail writes the error envelope; the router uses it for 404/405.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okRemembered writes body and, when the request carried a validated
// Idempotency-Key, stores the exact bytes for replay. Storage failures are
// logged and do not affect the response.
func (h *Handlers) okRemembered(c *gin.Context, status int, body any) {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || h.idem == nil {
		ok(c, status, body)
		return
	}
	b, err := json.Marshal(body)
	if err != nil {
		failWith(c, err)
		return
	}
	if err := h.idem.Store(c.Request.Context(), middleware.UserIDFrom(c), middleware.Operation(c), key, status, b); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency store failed")
	}
	c.Data(status, "application/json; charset=utf-8", b)
}

// replay answers from the stored response when the idempotency middleware
// flagged the request. It reports whether a response was written.
func (h *Handlers) replay(c *gin.Context) bool {
	if !middleware.IsReplay(c) || h.idem == nil {
		return false
	}
	key, _ := middleware.GetIdempotencyKey(c)
	// Expired or purged between the middleware check and now: not written.
	return h.writeStored(c, key)
}

// beginIdempotent replays a stored response or marks the request's
// Idempotency-Key as in flight. handled reports that a response was already
// written (replay, or 409 while another request holds the key); otherwise
// done must be called once the handler has answered.
//
// The in-flight set is per process. Instances behind a load balancer can
// still race on the same key.
func (h *Handlers) beginIdempotent(c *gin.Context) (done func(), handled bool) {
	if h.replay(c) {
		return nil, true
	}
	key, has := middleware.GetIdempotencyKey(c)
	if !has || h.idem == nil {
		return func() {}, false
	}
	slot := middleware.UserIDFrom(c) + "\x00" + middleware.Operation(c) + "\x00" + key
	if _, busy := h.inflight.LoadOrStore(slot, struct{}{}); busy {
		c.Header("Retry-After", "1")
		fail(c, http.StatusConflict, ErrCodeIdempotencyInProgress, "a request with this Idempotency-Key is still in progress")
		return nil, true
	}
	release := func() { h.inflight.Delete(slot) }

	// The previous holder may have stored its response after the middleware
	// looked.
	if h.writeStored(c, key) {
		release()
		return nil, true
	}
	return release, false
}

func (h *Handlers) writeStored(c *gin.Context, key string) bool {
	rec, err := h.idem.Lookup(c.Request.Context(), middleware.UserIDFrom(c), middleware.Operation(c), key)
	if err != nil || rec == nil {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
	return true
}
