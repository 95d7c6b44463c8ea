package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/auth"
	"campus-facility-backend/internal/facility"
	"campus-facility-backend/internal/mw"
	"campus-facility-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *facility.Service
	auth    *auth.Authenticator
	subs    store.SubscriptionStore
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(svc *facility.Service, a *auth.Authenticator, subs store.SubscriptionStore, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:     svc,
		auth:    a,
		subs:    subs,
		webpush: webpushOptions,
	}
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindSubjectSuspended:  http.StatusForbidden,
	apperr.KindAlreadyInProgress: http.StatusConflict,
	apperr.KindCapacityExceeded:  http.StatusConflict,
	apperr.KindInvalidState:      http.StatusConflict,
	apperr.KindUnavailable:       http.StatusConflict,
}

// respondError writes the error body for err. Business rejections keep their
// kind and code; anything else is logged and reported as internal.
func respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		badRequest(c, err.Error())
		return
	}

	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error_kind": apperr.KindInternal,
			"code":       apperr.CodeOf(err),
			"message":    "internal error",
		})
		return
	}

	var e *apperr.Error
	errors.As(err, &e)
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error_kind": e.Kind,
		"code":       e.Code,
		"message":    e.Message,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success":    false,
		"error_kind": "invalid_request",
		"code":       "invalid_request",
		"message":    msg,
	})
}

func staffID(c *gin.Context) string {
	return c.GetString(mw.CtxStaffID)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// dateParam returns the date query parameter, defaulting to today.
func (h *Handler) dateParam(c *gin.Context) string {
	if d := c.Query("date"); d != "" {
		return d
	}
	return h.svc.Today()
}
