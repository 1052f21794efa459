package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragvault/internal/app"
	"ragvault/internal/transport/http/middleware"
	"ragvault/internal/transport/http/response"
)

type SearchHandler struct {
	documentService *app.DocumentService
}

func NewSearchHandler(documentService *app.DocumentService) *SearchHandler {
	return &SearchHandler{documentService: documentService}
}

type SearchRequest struct {
	CollectionID uint   `json:"collection_id" binding:"required"`
	Query        string `json:"query" binding:"required,min=1,max=4096"`
	Limit        int    `json:"limit" binding:"omitempty,min=1,max=50"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.documentService.Search(c.Request.Context(), app.SearchInput{
		UserID:       userID,
		CollectionID: req.CollectionID,
		Query:        req.Query,
		Limit:        req.Limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrCollectionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCollectionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}
	response.OK(c, gin.H{"results": results})
}
