package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/service"
)

type VerificationHandler struct {
	Verifications *service.VerificationService
}

func (h *VerificationHandler) RegisterProtected(rg *gin.RouterGroup) {
	rg.POST("/verification", h.Submit)
}

// RegisterAdmin wires the review endpoints; the group already carries the
// admin gate.
func (h *VerificationHandler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("/verification/pending", h.ListPending)
	rg.POST("/verification/:id/approve", h.Approve)
	rg.POST("/verification/:id/reject", h.Reject)
}

func (h *VerificationHandler) Submit(c *gin.Context) {
	var in service.VerificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req, err := h.Verifications.Submit(c.Request.Context(), middleware.Identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *VerificationHandler) ListPending(c *gin.Context) {
	limit, offset := pageParams(c, 20, 100)

	list, err := h.Verifications.ListPending(c.Request.Context(), middleware.Identity(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *VerificationHandler) Approve(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Verifications.Approve(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *VerificationHandler) Reject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var in rejectRequest
	_ = c.ShouldBindJSON(&in)

	if err := h.Verifications.Reject(c.Request.Context(), middleware.Identity(c), id, in.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
