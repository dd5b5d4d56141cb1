package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/groupchat/internal/apperr"
	"github.com/smallbiznis/groupchat/internal/chat"
)

type errorPayload struct {
	Type              string `json:"type"`
	Code              string `json:"code,omitempty"`
	Message           string `json:"message"`
	Reason            string `json:"reason,omitempty"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	errInvalidRequest = apperr.Validation("invalid_request", "invalid request")
	errInvalidSeq     = apperr.Validation("invalid_seq", "seq must be a positive integer")
	errInvalidCursor  = apperr.Validation("invalid_cursor", "after_seq must be a non-negative integer")
	errInvalidLimit   = apperr.Validation("invalid_limit", "limit must be an integer")
	errRouteNotFound  = apperr.NotFound("route_not_found", "not found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if payload.RetryAfterSeconds > 0 {
			c.Header("Retry-After", strconv.FormatInt(payload.RetryAfterSeconds, 10))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	appErr, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	payload := errorPayload{
		Type:    string(appErr.Kind),
		Code:    appErr.Code,
		Message: appErr.Message,
		Reason:  appErr.Reason,
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, payload
	case apperr.KindNotFound:
		return http.StatusNotFound, payload
	case apperr.KindAuthorization:
		if appErr.Is(chat.ErrUnauthenticated) {
			return http.StatusUnauthorized, payload
		}
		return http.StatusForbidden, payload
	case apperr.KindPrecondition:
		return http.StatusPreconditionFailed, payload
	case apperr.KindConflict:
		return http.StatusConflict, payload
	case apperr.KindContentRejected:
		return http.StatusUnprocessableEntity, payload
	case apperr.KindRateLimited:
		payload.RetryAfterSeconds = int64(math.Ceil(appErr.RetryAfter.Seconds()))
		if payload.RetryAfterSeconds < 1 {
			payload.RetryAfterSeconds = 1
		}
		return http.StatusTooManyRequests, payload
	case apperr.KindUnavailable:
		payload.Message = "service unavailable"
		return http.StatusServiceUnavailable, payload
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger. Causes never leave the
// process through it.
func classifyErrorForLog(err error) (string, string) {
	appErr, ok := apperr.As(err)
	if !ok {
		return "internal_error", ""
	}
	return string(appErr.Kind), appErr.Code
}
