package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"listings-cms/internal/logger"
	"listings-cms/middleware"
	"listings-cms/models"
	"listings-cms/services"
	"listings-cms/utils"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminRoutes struct {
	Admin        *services.AdminService
	Export       *services.ExportService
	Audit        *services.AuditLogger
	Auth         *middleware.AuthMiddleware
	LoginLimit   gin.HandlerFunc
	SecureCookie bool
}

// SetupAdminRoutes mounts the session endpoints and the export under /api/admin.
func SetupAdminRoutes(api *gin.RouterGroup, r AdminRoutes) {
	admin := api.Group("/admin")

	login := []gin.HandlerFunc{}
	if r.LoginLimit != nil {
		login = append(login, r.LoginLimit)
	}
	login = append(login, handleLogin(r.Admin, r.SecureCookie))

	admin.POST("/login", login...)
	admin.GET("/session", r.Auth.OptionalAdmin(), handleSession())
	admin.POST("/logout", r.Auth.RequireAdmin(), handleLogout(r.Admin, r.SecureCookie))
	admin.GET("/export", r.Auth.RequireAdmin(), handleExport(r.Export))

	if r.Audit != nil {
		admin.GET("/audit", r.Auth.RequireAdmin(), handleAuditQuery(r.Audit))
		admin.GET("/audit/verify", r.Auth.RequireAdmin(), handleAuditVerify(r.Audit))
	}
}

func handleLogin(adminService *services.AdminService, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithInvalidInput(c, err)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		session, err := adminService.Login(ctx, req)
		if errors.Is(err, services.ErrInvalidCredentials) {
			logger.Warn("failed admin login", "username", req.Username, "client_ip", c.ClientIP())
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}
		if err != nil {
			logger.Error("admin login failed", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Login failed")
			return
		}

		middleware.SetSessionCookie(c, session.Token, int(adminService.SessionTTL().Seconds()), secure)
		logger.Info("admin logged in", "username", session.Username)

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
			Username:  session.Username,
		})
	}
}

func handleSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		if claims == nil {
			c.JSON(http.StatusOK, models.SessionStatus{Authenticated: false})
			return
		}

		status := models.SessionStatus{Authenticated: true, Username: claims.Username}
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			status.ExpiresAt = &exp
		}
		c.JSON(http.StatusOK, status)
	}
}

func handleLogout(adminService *services.AdminService, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		if err := adminService.Logout(ctx, claims); err != nil {
			logger.Error("failed to revoke session", "error", err, "username", claims.Username)
			utils.RespondWithInternalError(c, "Logout failed")
			return
		}

		middleware.ClearSessionCookie(c, secure)
		c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
	}
}

func handleExport(exportService *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		data, err := exportService.ExportWorkbook(ctx)
		if err != nil {
			logger.Error("export failed", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Failed to generate export")
			return
		}

		filename := fmt.Sprintf("listings-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}

func handleAuditQuery(auditor *services.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		result, err := auditor.Query(ctx, models.AuditQuery{
			Admin:    c.Query("admin"),
			Action:   strings.ToUpper(c.Query("action")),
			Resource: c.Query("resource"),
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			logger.Error("audit query failed", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Failed to query audit logs")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func handleAuditVerify(auditor *services.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		result, err := auditor.Verify(ctx)
		if err != nil {
			logger.Error("audit verification failed", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Failed to verify audit logs")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
