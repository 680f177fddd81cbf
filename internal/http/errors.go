package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/tours-service/internal/log"
)

// apiError carries the HTTP status alongside a client-safe message. Every
// handler failure funnels through respondError so the envelope shape is
// uniform across the service.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(msg string) *apiError   { return &apiError{http.StatusBadRequest, msg} }
func unauthorized(msg string) *apiError { return &apiError{http.StatusUnauthorized, msg} }
func forbidden(msg string) *apiError    { return &apiError{http.StatusForbidden, msg} }
func notFound(msg string) *apiError     { return &apiError{http.StatusNotFound, msg} }
func internal(msg string) *apiError     { return &apiError{http.StatusInternalServerError, msg} }

// respondError writes the error envelope: "fail" for client errors, "error"
// for server errors. Non-apiError values are logged and masked so internal
// detail never reaches the client.
func respondError(c *gin.Context, err error) {
	ae, ok := err.(*apiError)
	if !ok {
		log.L.Error("unhandled error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		ae = internal("something went wrong")
	}
	status := "fail"
	if ae.Status >= http.StatusInternalServerError {
		status = "error"
	}
	c.AbortWithStatusJSON(ae.Status, gin.H{"status": status, "message": ae.Message})
}
