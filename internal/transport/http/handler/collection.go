package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragvault/internal/app"
	"ragvault/internal/transport/http/middleware"
	"ragvault/internal/transport/http/response"
)

type CollectionHandler struct {
	collectionService *app.CollectionService
}

func NewCollectionHandler(collectionService *app.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

type CreateCollectionRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=128"`
	VectorSize int    `json:"vector_size" binding:"omitempty,min=1,max=65536"`
}

func (h *CollectionHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	var req CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	collection, err := h.collectionService.Create(c.Request.Context(), app.CreateCollectionInput{
		UserID:     userID,
		Name:       req.Name,
		VectorSize: req.VectorSize,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create collection failed")
		return
	}
	response.OK(c, collection)
}

func (h *CollectionHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	collections, err := h.collectionService.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list collections failed")
		return
	}
	response.OK(c, collections)
}

func (h *CollectionHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid collection id")
		return
	}

	collection, err := h.collectionService.Get(id, userID)
	if err != nil {
		if errors.Is(err, app.ErrCollectionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeCollectionNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch collection failed")
		return
	}
	response.OK(c, collection)
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid collection id")
		return
	}

	if err := h.collectionService.Delete(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, app.ErrCollectionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeCollectionNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete collection failed")
		return
	}
	response.OK(c, gin.H{"deleted": id})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
