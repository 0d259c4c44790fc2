package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

func (h *handlers) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, customersvc.ErrInvalidCredentials),
		errors.Is(err, customersvc.ErrInvalidToken):
		status, code = http.StatusUnauthorized, "unauthorized"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Errorf("http: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}

func (h *handlers) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": msg})
}
