package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragvault/internal/app"
	"ragvault/internal/extract"
	"ragvault/internal/ingest"
	"ragvault/internal/transport/http/middleware"
	"ragvault/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
	ingestService   *app.IngestService
}

func NewDocumentHandler(documentService *app.DocumentService, ingestService *app.IngestService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		ingestService:   ingestService,
	}
}

// Upload accepts a multipart file plus collection_id and queues it for
// ingestion, returning the run ID for the event stream. With ?wait=1 the
// pipeline runs inline and the summary comes back in the response.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	collectionID, err := strconv.ParseUint(c.PostForm("collection_id"), 10, 32)
	if err != nil || collectionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid collection_id")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}

	input := app.UploadInput{
		UserID:       userID,
		CollectionID: uint(collectionID),
		Filename:     fileHeader.Filename,
		Data:         data,
	}

	if c.Query("wait") == "1" {
		runID, summary, err := h.ingestService.RunSync(c.Request.Context(), input)
		if err != nil {
			h.uploadError(c, err)
			return
		}
		response.OK(c, gin.H{"run_id": runID, "summary": summary})
		return
	}

	runID, err := h.ingestService.Enqueue(c.Request.Context(), input)
	if err != nil {
		h.uploadError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{
		Code:    response.CodeOK,
		Message: "ok",
		Data:    gin.H{"run_id": runID},
	})
}

func (h *DocumentHandler) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, extract.ErrUnsupportedType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedType, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, app.ErrCollectionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeCollectionNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest upload failed")
	}
}

// Events streams progress for a run as server-sent events until a terminal
// stage arrives or the client disconnects. There is no replay; events before
// the subscription are gone.
func (h *DocumentHandler) Events(c *gin.Context) {
	runID := c.Param("run_id")
	if runID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing run_id")
		return
	}

	eventsCh, cancel := h.ingestService.Subscribe(c.Request.Context(), runID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := c.Writer.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				return
			}
			c.Writer.Flush()
			if event.Stage == ingest.StageComplete || event.Stage == ingest.StageError {
				return
			}
		}
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	collectionID, err := strconv.ParseUint(c.Query("collection_id"), 10, 32)
	if err != nil || collectionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid collection_id")
		return
	}

	docs, err := h.documentService.List(userID, uint(collectionID))
	if err != nil {
		if errors.Is(err, app.ErrCollectionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeCollectionNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.documentService.Get(id, userID)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted": id})
}
