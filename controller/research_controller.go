package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/services"
	"github.com/parishlabs/discern/storage"
)

// Context field storage keys, shared with the client flows.
const (
	churchNameKey   = "church_name"
	userLocationKey = "user_location"
)

// maxImportBytes bounds uploaded documents.
const maxImportBytes = 10 << 20 // 10MB

// ResearchController handles search, annotation, note CRUD, document
// import and the shared context fields. It delegates all logic to the
// research service.
type ResearchController struct {
	research services.ResearchService
	storage  storage.Storage
}

func NewResearchController(research services.ResearchService, st storage.Storage) *ResearchController {
	return &ResearchController{research: research, storage: st}
}

// respondError maps service errors to HTTP statuses: validation -> 400,
// lookup miss -> 404, anything else -> 500 with a generic message.
func respondError(ctx *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// Search handles POST /api/v1/research/:domain/search.
func (c *ResearchController) Search(ctx *gin.Context) {
	var req models.ResearchSearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.research.Search(ctx.Request.Context(), ctx.Param("domain"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// Annotate handles POST /api/v1/research/:domain/annotate.
func (c *ResearchController) Annotate(ctx *gin.Context) {
	var req models.AnnotateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.research.Annotate(ctx.Request.Context(), ctx.Param("domain"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, response)
}

// GetNotes handles GET /api/v1/notes/:domain.
func (c *ResearchController) GetNotes(ctx *gin.Context) {
	response, err := c.research.Notes(ctx.Param("domain"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// AddNote handles POST /api/v1/notes/:domain.
func (c *ResearchController) AddNote(ctx *gin.Context) {
	var req models.AddNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	note, err := c.research.AddNote(ctx.Request.Context(), ctx.Param("domain"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, note)
}

// UpdateNote handles PUT /api/v1/notes/:domain/:id.
func (c *ResearchController) UpdateNote(ctx *gin.Context) {
	var req models.UpdateNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	err := c.research.UpdateNote(ctx.Request.Context(), ctx.Param("domain"), req.Category, ctx.Param("id"), req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Note updated"})
}

// DeleteNote handles DELETE /api/v1/notes/:domain/:id?category=...
func (c *ResearchController) DeleteNote(ctx *gin.Context) {
	category := ctx.Query("category")
	err := c.research.DeleteNote(ctx.Request.Context(), ctx.Param("domain"), category, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

// ImportDocument handles POST /api/v1/notes/:domain/import: a multipart
// upload whose extracted text becomes a note in the given category.
func (c *ResearchController) ImportDocument(ctx *gin.Context) {
	category := strings.TrimSpace(ctx.PostForm("category"))
	if category == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "category form field is required"})
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "file form field is required"})
		return
	}
	if fileHeader.Size > maxImportBytes {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	text, err := services.ExtractTextFromUpload(fileHeader.Filename, data)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := c.research.AddNote(ctx.Request.Context(), ctx.Param("domain"), models.AddNoteRequest{
		Category: category,
		Content:  text,
		Metadata: &models.NoteMetadata{SourceTitle: fileHeader.Filename},
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, note)
}

// GetContext handles GET /api/v1/context.
func (c *ResearchController) GetContext(ctx *gin.Context) {
	response := models.ContextFieldsResponse{}
	if data, ok := c.storage.Load(churchNameKey); ok {
		response.ChurchName = string(data)
	}
	if data, ok := c.storage.Load(userLocationKey); ok {
		response.UserLocation = string(data)
	}
	ctx.JSON(http.StatusOK, response)
}

// SetContext handles PUT /api/v1/context.
func (c *ResearchController) SetContext(ctx *gin.Context) {
	var req models.ContextFieldsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	// Context fields persist as plain strings, best-effort like the
	// note stores.
	if err := c.storage.Save(churchNameKey, []byte(req.ChurchName)); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save context"})
		return
	}
	if err := c.storage.Save(userLocationKey, []byte(req.UserLocation)); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save context"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Context saved"})
}
