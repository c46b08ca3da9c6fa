package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/services"
)

// defaultSemanticResults bounds semantic queries when the client does
// not ask for a specific count.
const defaultSemanticResults = 5

// CollectionController exposes the collection dashboard: filtered
// views, plain-text export, and semantic search over indexed notes.
type CollectionController struct {
	collection *services.CollectionService
	index      *services.IndexService // nil when semantic search is disabled
}

func NewCollectionController(collection *services.CollectionService, index *services.IndexService) *CollectionController {
	return &CollectionController{collection: collection, index: index}
}

// View handles GET /api/v1/collection/:domain?q=...&category=...&tag=...
func (c *CollectionController) View(ctx *gin.Context) {
	filter := services.CollectionFilter{
		Text:     ctx.Query("q"),
		Category: ctx.Query("category"),
		Tag:      ctx.Query("tag"),
	}

	response, err := c.collection.View(ctx.Param("domain"), filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// Export handles GET /api/v1/collection/:domain/export, returning the
// summary as a text attachment.
func (c *CollectionController) Export(ctx *gin.Context) {
	domain := ctx.Param("domain")
	summary, err := c.collection.Export(domain, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	filename := fmt.Sprintf("%s-research-summary.txt", domain)
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(summary))
}

// Semantic handles POST /api/v1/collection/:domain/semantic.
func (c *CollectionController) Semantic(ctx *gin.Context) {
	if c.index == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Semantic search is not configured"})
		return
	}

	var req models.SemanticQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	n := req.MaxResults
	if n <= 0 {
		n = defaultSemanticResults
	}

	hits, err := c.index.Query(ctx.Request.Context(), ctx.Param("domain"), req.Query, n)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Semantic search failed"})
		return
	}
	ctx.JSON(http.StatusOK, models.SemanticQueryResponse{Hits: hits})
}
