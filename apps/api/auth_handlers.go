package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) registerAuthRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", a.adminLoginHandler)
		auth.POST("/logout", a.adminLogoutHandler)
		auth.GET("/session", a.adminSessionHandler)
		auth.POST("/seed", a.seedAdminHandler)
	}
}

func (a *App) adminLoginHandler(c *gin.Context) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Invalid login payload"})
		return
	}
	payload.Email = normalizeEmail(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Email and password are required"})
		return
	}

	session, err := a.authenticate(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	token, err := a.startAdminSession(c, *session)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	a.log.Info("admin login", "email", session.Email, "role", session.Role)
	c.JSON(http.StatusOK, gin.H{"token": token, "admin": session})
}

func (a *App) adminLogoutHandler(c *gin.Context) {
	a.clearAdminSession(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *App) adminSessionHandler(c *gin.Context) {
	token, ok := sessionTokenFromRequest(c)
	if !ok {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Admin session required"})
		return
	}
	session, err := a.verifyAdminSessionToken(token)
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Admin session required"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// seedAdminHandler creates the first admin account. It refuses once any
// account exists, so it needs no session.
func (a *App) seedAdminHandler(c *gin.Context) {
	var input AdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Invalid admin payload"})
		return
	}
	if strings.TrimSpace(input.Role) == "" {
		input.Role = "admin"
	}

	admin, err := a.seedFirstAdmin(c.Request.Context(), input)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	a.log.Info("first admin seeded", "email", admin.Email)
	c.JSON(http.StatusCreated, gin.H{"success": true, "admin": admin})
}

func (a *App) createAdminHandler(c *gin.Context) {
	var input AdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Invalid admin payload"})
		return
	}

	admin, err := a.createAdmin(c.Request.Context(), input)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	session, _ := getAdminSession(c)
	a.log.Info("admin created", "email", admin.Email, "role", admin.Role, "created_by", session.Email)
	c.JSON(http.StatusCreated, gin.H{"success": true, "admin": admin})
}

func (a *App) listAdminsHandler(c *gin.Context) {
	admins, err := a.listAdmins(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": admins})
}

func (a *App) authenticate(ctx context.Context, email, password string) (*AdminSession, error) {
	if a.adminAuthenticate != nil {
		return a.adminAuthenticate(ctx, email, password)
	}
	return a.authenticateAdminCredentials(ctx, email, password)
}

func (a *App) createAdmin(ctx context.Context, input AdminInput) (*Admin, error) {
	if a.adminCreate != nil {
		return a.adminCreate(ctx, input)
	}
	return a.storeCreateAdmin(ctx, input)
}

func (a *App) seedFirstAdmin(ctx context.Context, input AdminInput) (*Admin, error) {
	if a.adminSeed != nil {
		return a.adminSeed(ctx, input)
	}
	return a.storeSeedFirstAdmin(ctx, input)
}

func (a *App) listAdmins(ctx context.Context) ([]Admin, error) {
	if a.adminList != nil {
		return a.adminList(ctx)
	}
	return a.storeListAdmins(ctx)
}

func describeAdmin(admin Admin) string {
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s", admin.ID, admin.Email, admin.Name, admin.Role, admin.CreatedAt)
}
