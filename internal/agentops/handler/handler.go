package handler

import (
	"context"
	"net/http"
	"strconv"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/orchestrator"
	"salesdesk_backend/internal/agentops/queue"
	"salesdesk_backend/internal/agentops/repository"
	"salesdesk_backend/internal/agentops/transport"
	"salesdesk_backend/internal/http/response"
	"salesdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidID = "invalid id"

type Handler struct {
	orchestrator *orchestrator.Orchestrator
	queue        *queue.Queue
	runs         *repository.Runs
}

func New(orchestrator *orchestrator.Orchestrator, q *queue.Queue, runs *repository.Runs) *Handler {
	return &Handler{orchestrator: orchestrator, queue: q, runs: runs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/runs", h.ListRuns)
	rg.GET("/runs/:id", h.GetRun)
	rg.POST("/runs/sweep", h.Sweep)
	rg.GET("/actions", h.ListActions)

	// The approval gate is a human decision, restricted to managers.
	reviews := rg.Group("", httpkit.RequireRole("manager"))
	reviews.POST("/actions/:id/approve", h.ApproveAction)
	reviews.POST("/actions/:id/reject", h.RejectAction)

	rg.POST("/actions/:id/execute", h.ExecuteAction)
}

// Sweep dispatches all registered batch agents and reports their aggregated
// outcomes. A failed branch is part of the payload, not an HTTP error.
func (h *Handler) Sweep(c *gin.Context) {
	results := h.orchestrator.RunAll(c.Request.Context())
	response.OK(c, gin.H{"results": results})
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToRunResponses(runs))
}

func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrRunNotFound {
			response.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToRunResponse(run))
}

func (h *Handler) ListActions(c *gin.Context) {
	status := domain.ActionStatus(c.DefaultQuery("status", string(domain.ActionStatusPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	actions, err := h.queue.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToActionResponses(actions))
}

func (h *Handler) ApproveAction(c *gin.Context) {
	h.transitionAction(c, h.queue.Approve)
}

func (h *Handler) RejectAction(c *gin.Context) {
	h.transitionAction(c, h.queue.Reject)
}

func (h *Handler) ExecuteAction(c *gin.Context) {
	h.transitionAction(c, h.queue.Execute)
}

func (h *Handler) transitionAction(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (domain.Action, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	action, err := op(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToActionResponse(action))
}
