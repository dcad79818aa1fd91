package routes

import (
	"errors"
	"net/http"
	"strings"

	"listings-cms/internal/logger"
	"listings-cms/internal/store"
	"listings-cms/middleware"
	"listings-cms/models"
	"listings-cms/services"
	"listings-cms/utils"

	"github.com/gin-gonic/gin"
)

// Labels names a resource in response messages.
type Labels struct {
	Singular string // "profile"
	Plural   string // "profiles"
}

func (l Labels) title() string {
	if l.Singular == "" {
		return ""
	}
	return strings.ToUpper(l.Singular[:1]) + l.Singular[1:]
}

// ListingRoute describes one CRUD resource mounted under /api.
type ListingRoute[T any] struct {
	Path    string
	Labels  Labels
	Service *services.ListingService[T]
	// Filters maps accepted query parameters to a validator for their value.
	Filters map[string]func(string) bool
}

// RegisterListing mounts list/get publicly and create/update/delete behind requireAdmin.
// C and U are the typed payloads bound from JSON.
func RegisterListing[T any, C models.CreateCommand[T], U models.UpdateCommand](api *gin.RouterGroup, r ListingRoute[T], requireAdmin gin.HandlerFunc) {
	group := api.Group(r.Path)

	group.GET("", handleList(r))
	group.GET("/:id", handleGet(r))
	group.POST("", requireAdmin, handleCreate[T, C](r))
	group.PUT("/:id", requireAdmin, handleUpdate[T, U](r))
	group.DELETE("/:id", requireAdmin, handleDelete(r))
}

func handleList[T any](r ListingRoute[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := map[string]string{}
		for key, valid := range r.Filters {
			value := c.Query(key)
			if value == "" {
				continue
			}
			if valid != nil && !valid(value) {
				utils.RespondWithBadRequest(c, "Invalid "+key, gin.H{key: value})
				return
			}
			filter[key] = value
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		docs, status, err := r.Service.List(ctx, filter)
		if err != nil {
			logFailure(c, "list", r.Labels, err)
			utils.RespondWithInternalError(c, "Error fetching "+r.Labels.Plural)
			return
		}

		c.Header("X-Cache", string(status))
		c.JSON(http.StatusOK, docs)
	}
}

func handleGet[T any](r ListingRoute[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		doc, err := r.Service.Get(ctx, c.Param("id"))
		if err != nil {
			respondWithStoreError(c, "get", r.Labels, err, "Error fetching "+r.Labels.Singular)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func handleCreate[T any, C models.CreateCommand[T]](r ListingRoute[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req C
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithInvalidInput(c, err)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		doc, err := r.Service.Create(ctx, req)
		if err != nil {
			logFailure(c, "create", r.Labels, err)
			utils.RespondWithInternalError(c, "Error creating "+r.Labels.Singular)
			return
		}

		logger.Info("listing created", "resource", r.Labels.Plural, "admin", middleware.GetUsername(c), "request_id", middleware.GetRequestID(c))
		c.JSON(http.StatusCreated, doc)
	}
}

func handleUpdate[T any, U models.UpdateCommand](r ListingRoute[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := store.ParseID(id); err != nil {
			utils.RespondWithInvalidID(c, "Invalid "+r.Labels.Singular+" ID")
			return
		}

		var req U
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithInvalidInput(c, err)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		doc, err := r.Service.Update(ctx, id, req)
		if errors.Is(err, services.ErrNothingToUpdate) {
			utils.RespondWithBadRequest(c, "No fields to update", nil)
			return
		}
		if err != nil {
			respondWithStoreError(c, "update", r.Labels, err, "Error updating "+r.Labels.Singular)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func handleDelete[T any](r ListingRoute[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := r.Service.Delete(ctx, c.Param("id")); err != nil {
			respondWithStoreError(c, "delete", r.Labels, err, "Error deleting "+r.Labels.Singular)
			return
		}

		logger.Info("listing deleted", "resource", r.Labels.Plural, "id", c.Param("id"), "admin", middleware.GetUsername(c))
		c.JSON(http.StatusOK, models.MessageResponse{Message: r.Labels.title() + " deleted successfully"})
	}
}

// respondWithStoreError maps store sentinels to 400/404 and anything else to a static 500.
func respondWithStoreError(c *gin.Context, op string, labels Labels, err error, internalMessage string) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		utils.RespondWithInvalidID(c, "Invalid "+labels.Singular+" ID")
	case errors.Is(err, store.ErrNotFound):
		utils.RespondWithNotFound(c, labels.title()+" not found")
	default:
		logFailure(c, op, labels, err)
		utils.RespondWithInternalError(c, internalMessage)
	}
}

func logFailure(c *gin.Context, op string, labels Labels, err error) {
	logger.Error("listing operation failed",
		"op", op,
		"resource", labels.Plural,
		"error", err,
		"request_id", middleware.GetRequestID(c),
	)
}
