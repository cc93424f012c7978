package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/models"
	"markethub/internal/repository"
	"markethub/internal/service"
)

type ListingHandler struct {
	Listings *service.ListingService
}

// RegisterPublic wires the routes that allow anonymous callers.
func (h *ListingHandler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/listings/:category", h.Search)
	rg.GET("/listings/:category/:id", h.Get)
	rg.GET("/listings/:category/:id/images", h.Gallery)
	rg.GET("/profile/:username/listings", h.Profile)
}

// RegisterProtected wires the routes that require an identity.
func (h *ListingHandler) RegisterProtected(rg *gin.RouterGroup) {
	rg.POST("/listings/:category", h.Create)
	rg.PATCH("/listings/:category/:id", h.Update)
	rg.DELETE("/listings/:category/:id", h.Delete)
	rg.POST("/listings/:category/:id/images", h.AddGalleryImage)
	rg.DELETE("/listings/:category/:id/images/:fileID", h.RemoveGalleryImage)
	rg.GET("/my/listings/:category", h.Mine)
	rg.GET("/my/dashboard", h.Dashboard)
}

// GET /api/listings/:category?location=...&min_price=...&max_price=...&limit=...&offset=...
func (h *ListingHandler) Search(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}

	var f repository.SearchFilters
	f.Location = strings.TrimSpace(c.Query("location"))
	if v := c.Query("min_price"); v != "" {
		if min, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MinPrice = min
		}
	}
	if v := c.Query("max_price"); v != "" {
		if max, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MaxPrice = max
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.Listings.Search(c.Request.Context(), cat, f, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildListingViews(list))
}

func (h *ListingHandler) Get(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	l, err := h.Listings.Get(c.Request.Context(), middleware.Identity(c), cat, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildListingView(*l))
}

func (h *ListingHandler) Create(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}

	var l models.Listing
	if err := c.ShouldBindJSON(&l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.Listings.Create(c.Request.Context(), middleware.Identity(c), cat, &l)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildListingView(*created))
}

// Update applies a partial update: only the fields present in the body
// change.
func (h *ListingHandler) Update(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var attrs map[string]interface{}
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.Listings.Update(c.Request.Context(), middleware.Identity(c), cat, id, attrs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildListingView(*updated))
}

func (h *ListingHandler) Delete(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Listings.Delete(c.Request.Context(), middleware.Identity(c), cat, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Mine returns the caller's listings in a category, unpublished included.
func (h *ListingHandler) Mine(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}

	list, err := h.Listings.Mine(c.Request.Context(), middleware.Identity(c), cat)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildListingViews(list))
}

// Dashboard returns the caller's listings across all categories at once.
func (h *ListingHandler) Dashboard(c *gin.Context) {
	byCat, err := h.Listings.Dashboard(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make(map[models.Category][]ListingView, len(byCat))
	for cat, list := range byCat {
		out[cat] = buildListingViews(list)
	}
	c.JSON(http.StatusOK, out)
}

// Profile returns a user's published listings across all categories.
func (h *ListingHandler) Profile(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username parameter is required"})
		return
	}
	username = strings.TrimPrefix(username, "@")

	byCat, err := h.Listings.PublicProfile(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make(map[models.Category][]ListingView, len(byCat))
	for cat, list := range byCat {
		out[cat] = buildListingViews(list)
	}
	c.JSON(http.StatusOK, out)
}

type galleryRequest struct {
	FileID   int64 `json:"file_id"`
	Position int   `json:"position"`
}

func (h *ListingHandler) Gallery(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	images, err := h.Listings.Gallery(c.Request.Context(), middleware.Identity(c), cat, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

func (h *ListingHandler) AddGalleryImage(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var in galleryRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.FileID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_id is required"})
		return
	}

	if err := h.Listings.AddGalleryImage(c.Request.Context(), middleware.Identity(c), cat, id, in.FileID, in.Position); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "added"})
}

func (h *ListingHandler) RemoveGalleryImage(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	fileID, ok := idParam(c, "fileID")
	if !ok {
		return
	}

	if err := h.Listings.RemoveGalleryImage(c.Request.Context(), middleware.Identity(c), cat, id, fileID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
