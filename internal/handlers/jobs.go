package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/service"
)

// JobHandler covers the application flow that only exists for job listings.
type JobHandler struct {
	Applications *service.ApplicationService
}

func (h *JobHandler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/jobs/:id/questions", h.Questions)
}

func (h *JobHandler) RegisterProtected(rg *gin.RouterGroup) {
	rg.POST("/jobs/:id/apply", h.Apply)
	rg.GET("/jobs/:id/applications", h.ListForJob)
	rg.GET("/my/applications", h.Mine)
	rg.POST("/jobs/:id/questions", h.AddQuestion)
	rg.DELETE("/questions/:id", h.DeleteQuestion)
}

func (h *JobHandler) Apply(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var in service.ApplyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	app, err := h.Applications.Apply(c.Request.Context(), middleware.Identity(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *JobHandler) ListForJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	apps, err := h.Applications.ListForJob(c.Request.Context(), middleware.Identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *JobHandler) Mine(c *gin.Context) {
	apps, err := h.Applications.Mine(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

type questionRequest struct {
	Question string `json:"question"`
	Required bool   `json:"required"`
	Position int    `json:"position"`
}

func (h *JobHandler) AddQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var in questionRequest
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	q, err := h.Applications.AddQuestion(c.Request.Context(), middleware.Identity(c), id, in.Question, in.Required, in.Position)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *JobHandler) Questions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	qs, err := h.Applications.Questions(c.Request.Context(), middleware.Identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

func (h *JobHandler) DeleteQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Applications.DeleteQuestion(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
