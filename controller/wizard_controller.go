package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/services"
)

// WizardController exposes the two-step research wizard.
type WizardController struct {
	wizard *services.WizardService
}

func NewWizardController(wizard *services.WizardService) *WizardController {
	return &WizardController{wizard: wizard}
}

// CreateSession handles POST /api/v1/wizard/:domain/sessions.
func (c *WizardController) CreateSession(ctx *gin.Context) {
	session, err := c.wizard.CreateSession(ctx.Param("domain"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, session)
}

// GetSession handles GET /api/v1/wizard/:domain/sessions/:id.
func (c *WizardController) GetSession(ctx *gin.Context) {
	session, err := c.wizard.Session(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// SetStep handles POST /api/v1/wizard/:domain/sessions/:id/step.
func (c *WizardController) SetStep(ctx *gin.Context) {
	var req models.WizardStepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	session, err := c.wizard.SetStep(ctx.Param("id"), req.Step)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// Search handles POST /api/v1/wizard/:domain/sessions/:id/search.
func (c *WizardController) Search(ctx *gin.Context) {
	var req models.ResearchSearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.wizard.Search(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// Annotate handles POST /api/v1/wizard/:domain/sessions/:id/annotate.
func (c *WizardController) Annotate(ctx *gin.Context) {
	var req models.AnnotateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.wizard.Annotate(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, response)
}

// Complete handles POST /api/v1/wizard/:domain/sessions/:id/complete.
func (c *WizardController) Complete(ctx *gin.Context) {
	next, err := c.wizard.Complete(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"next": next})
}
