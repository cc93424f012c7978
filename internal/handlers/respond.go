package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"markethub/internal/models"
	"markethub/internal/service"
)

// respondError maps the service error taxonomy onto HTTP status codes. This
// is the only place the mapping lives.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		log.Printf("unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch svcErr.Kind {
	case service.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": svcErr.Msg, "field": svcErr.Field})
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": svcErr.Msg})
	case service.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": svcErr.Msg, "reason": svcErr.Reason})
	case service.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": svcErr.Msg, "reason": svcErr.Reason})
	case service.KindUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": svcErr.Msg})
	default:
		log.Printf("unhandled service error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func categoryParam(c *gin.Context) (models.Category, bool) {
	cat := models.Category(c.Param("category"))
	if !cat.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return "", false
	}
	return cat, true
}
