package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"listings-cms/internal/logger"
	"listings-cms/middleware"
	"listings-cms/models"
	"listings-cms/services"
	"listings-cms/utils"

	"github.com/gin-gonic/gin"
)

// videoPath is exempt from the global body limit; uploads are capped by the video size instead.
const videoPath = "/api/video"

// videoFormOverhead allows for multipart headers and the phoneNumber field on top of the file.
const videoFormOverhead = 1 << 20

// multipartMemory is how much of a parsed form is held in memory before spilling to disk.
const multipartMemory = 32 << 20

// SetupVideoRoutes exposes the promo banner settings.
func SetupVideoRoutes(api *gin.RouterGroup, videoService *services.VideoService, maxVideoSize int64, requireAdmin gin.HandlerFunc) {
	api.GET("/video", handleGetVideo(videoService))
	api.POST("/video", requireAdmin, handleUpdateVideo(videoService, maxVideoSize))
}

func respondVideoTooLarge(c *gin.Context, maxVideoSize int64) {
	utils.RespondWithBadRequest(c, fmt.Sprintf("File size too large. Maximum size is %s.", formatSize(maxVideoSize)), nil)
}

// formatSize renders n bytes as MB or KB, with one decimal unless exact.
func formatSize(n int64) string {
	const kb, mb = 1 << 10, 1 << 20
	switch {
	case n >= mb && n%mb == 0:
		return fmt.Sprintf("%dMB", n/mb)
	case n >= mb:
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	case n >= kb && n%kb == 0:
		return fmt.Sprintf("%dKB", n/kb)
	case n >= kb:
		return fmt.Sprintf("%.1fKB", float64(n)/kb)
	}
	return fmt.Sprintf("%d bytes", n)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func handleGetVideo(videoService *services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		settings, err := videoService.Get(ctx)
		if err != nil {
			logger.Error("failed to load video settings", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Failed to fetch video settings")
			return
		}

		c.JSON(http.StatusOK, models.VideoSettingsResponse{Success: true, Data: settings})
	}
}

func handleUpdateVideo(videoService *services.VideoService, maxVideoSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxVideoSize + videoFormOverhead
		if c.Request.ContentLength > limit {
			respondVideoTooLarge(c, maxVideoSize)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && isBodyTooLarge(err) {
			respondVideoTooLarge(c, maxVideoSize)
			return
		}

		var cmd services.UpdateVideoCommand

		if phone, ok := c.GetPostForm("phoneNumber"); ok {
			cmd.PhoneNumber = &phone
		}

		fileHeader, err := c.FormFile("video")
		switch {
		case err == nil:
			file, openErr := fileHeader.Open()
			if openErr != nil {
				utils.RespondWithBadRequest(c, "Failed to read uploaded file", nil)
				return
			}
			defer file.Close()

			cmd.Video = &services.VideoUpload{
				ContentType: fileHeader.Header.Get("Content-Type"),
				Size:        fileHeader.Size,
				Content:     file,
			}
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		case isBodyTooLarge(err):
			respondVideoTooLarge(c, maxVideoSize)
			return
		default:
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		settings, err := videoService.Update(ctx, cmd)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrNoVideoFields):
			utils.RespondWithBadRequest(c, "Either video file or phone number is required", nil)
			return
		case errors.Is(err, services.ErrInvalidVideoType):
			utils.RespondWithBadRequest(c, "Invalid file type. Only MP4, WebM, and OGG videos are allowed.", nil)
			return
		case errors.Is(err, services.ErrVideoTooLarge):
			respondVideoTooLarge(c, maxVideoSize)
			return
		case errors.Is(err, services.ErrUploadThrottled):
			utils.RespondWithError(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many uploads. Please try again shortly.", nil)
			return
		default:
			logger.Error("failed to update video settings", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Failed to update video settings")
			return
		}

		logger.Info("video settings updated", "admin", middleware.GetUsername(c), "video_url", settings.VideoURL)
		c.JSON(http.StatusOK, models.VideoSettingsResponse{Success: true, Data: settings})
	}
}
