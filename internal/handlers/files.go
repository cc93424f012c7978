package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/models"
	"markethub/internal/service"
)

type FileHandler struct {
	Files *service.FileService

	// MaxUploadBytes bounds the multipart part size before any blob write.
	MaxUploadBytes int64
}

func (h *FileHandler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/files/:id", h.Get)
	rg.GET("/files/:id/download", h.Download)
}

func (h *FileHandler) RegisterProtected(rg *gin.RouterGroup) {
	rg.POST("/files", h.Upload)
	rg.GET("/my/files", h.Mine)
	rg.POST("/files/:id/link", h.Link)
	rg.DELETE("/files/:id", h.Delete)
}

// Upload accepts a multipart form with a "file" part and optional
// entity_type/entity_id/is_public fields.
func (h *FileHandler) Upload(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file part is required"})
		return
	}
	if h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.MaxUploadBytes)})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer src.Close()

	in := service.UploadInput{
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Content:      src,
		IsPublic:     c.PostForm("is_public") == "true",
	}
	if et := c.PostForm("entity_type"); et != "" {
		t := models.EntityType(et)
		in.EntityType = &t
	}
	if raw := c.PostForm("entity_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
			return
		}
		in.EntityID = &id
	}

	f, err := h.Files.Upload(c.Request.Context(), middleware.Identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildFileView(*f))
}

func (h *FileHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	f, err := h.Files.Get(c.Request.Context(), middleware.Identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildFileView(*f))
}

// Download streams the blob with the stored content type and length.
func (h *FileHandler) Download(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	f, rc, err := h.Files.Open(c.Request.Context(), middleware.Identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	if f.MimeType != "" {
		c.Header("Content-Type", f.MimeType)
	}
	if f.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.OriginalName))

	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *FileHandler) Mine(c *gin.Context) {
	files, err := h.Files.Mine(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildFileViews(files))
}

type linkRequest struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	IsPrimary  bool              `json:"is_primary"`
}

func (h *FileHandler) Link(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var in linkRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.EntityID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity_type and entity_id are required"})
		return
	}

	err := h.Files.LinkToEntity(c.Request.Context(), middleware.Identity(c), id, in.EntityType, in.EntityID, in.IsPrimary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "linked"})
}

func (h *FileHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Files.Delete(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
