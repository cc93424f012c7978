package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/service"
)

type UserHandler struct {
	Users *service.UserService
}

func (h *UserHandler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/users/:id", h.Get)
}

func (h *UserHandler) RegisterProtected(rg *gin.RouterGroup) {
	rg.DELETE("/users/:id", h.Delete)
}

// UserView is the public shape of an account; the password hash and email
// never leave the server.
type UserView struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Role              string `json:"role"`
	IsCompany         bool   `json:"is_company"`
	IsVerifiedCompany bool   `json:"is_verified_company"`
	CompanyName       string `json:"company_name,omitempty"`
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	u, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	view := UserView{
		ID:                u.ID,
		Username:          u.Username,
		Role:              u.Role,
		IsCompany:         u.IsCompany,
		IsVerifiedCompany: u.IsVerifiedCompany,
	}
	if u.CompanyName != nil {
		view.CompanyName = *u.CompanyName
	}
	c.JSON(http.StatusOK, view)
}

// Delete removes an account. Owners can delete themselves; admins can
// delete anyone.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Users.Delete(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
