package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"markethub/internal/service"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"validation", service.Validation("title", "title is required"), http.StatusBadRequest},
		{"not found", service.NotFound("listing"), http.StatusNotFound},
		{"forbidden", service.Forbidden("not_owner"), http.StatusForbidden},
		{"conflict", service.Conflict("already_applied", "already applied"), http.StatusConflict},
		{"unavailable", service.Unavailable(errors.New("db down")), http.StatusServiceUnavailable},
		{"unclassified", errors.New("programming error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, service.Validation("price", "price must not be negative"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"price must not be negative","field":"price"}`, w.Body.String())
}
