package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/service"
	"markethub/internal/session"
)

type AuthHandler struct {
	Users    *service.UserService
	Sessions *session.Store

	// CookieSecure marks the session cookie Secure; off only for local dev.
	CookieSecure bool
	// CookieMaxAge mirrors the session TTL in seconds.
	CookieMaxAge int
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.Me)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	u, err := h.Users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and mints a fresh session; any existing session for
// the browser is simply overwritten by the new cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ident, err := h.Users.Login(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.Sessions.Create(c.Request.Context(), ident)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}

	c.SetCookie(middleware.SessionCookie, token, h.CookieMaxAge, "/", "", h.CookieSecure, true)
	c.JSON(http.StatusOK, ident)
}

// Logout destroys the session; logging out without one is still success.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.Token(c); token != "" {
		if err := h.Sessions.Destroy(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Me returns the refreshed session snapshot, or 401 for anonymous callers.
func (h *AuthHandler) Me(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, ident)
}
