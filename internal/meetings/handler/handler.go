package handler

import (
	"context"
	"net/http"

	"salesdesk_backend/internal/http/response"
	"salesdesk_backend/internal/meetings/domain"
	"salesdesk_backend/internal/meetings/service"
	"salesdesk_backend/internal/meetings/transport"
	"salesdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidID        = "invalid id"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Schedule)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/prepare", h.Prepare)
	rg.POST("/:id/join", h.Join)
	rg.POST("/:id/analyze", h.Analyze)
	rg.POST("/:id/complete", h.Complete)
}

func (h *Handler) Schedule(c *gin.Context) {
	var req transport.ScheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	meeting, err := h.svc.Schedule(c.Request.Context(), req.LeadID, req.Title, req.ScheduledAt)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, transport.ToMeetingResponse(meeting))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	meeting, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToMeetingResponse(meeting))
}

func (h *Handler) ListByLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	meetings, err := h.svc.ListByLead(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToMeetingResponses(meetings))
}

func (h *Handler) Prepare(c *gin.Context) {
	h.transition(c, h.svc.Prepare)
}

func (h *Handler) Join(c *gin.Context) {
	h.transition(c, h.svc.Join)
}

func (h *Handler) Analyze(c *gin.Context) {
	id, req, ok := h.transcriptRequest(c)
	if !ok {
		return
	}

	result, err := h.svc.Analyze(c.Request.Context(), id, req.Transcript)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToAnalyzeResponse(result))
}

func (h *Handler) Complete(c *gin.Context) {
	id, req, ok := h.transcriptRequest(c)
	if !ok {
		return
	}

	meeting, err := h.svc.Complete(c.Request.Context(), id, req.Transcript)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToMeetingResponse(meeting))
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (domain.Meeting, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	meeting, err := op(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToMeetingResponse(meeting))
}

func (h *Handler) transcriptRequest(c *gin.Context) (uuid.UUID, transport.TranscriptRequest, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, transport.TranscriptRequest{}, false
	}

	var req transport.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, transport.TranscriptRequest{}, false
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return uuid.Nil, transport.TranscriptRequest{}, false
	}

	return id, req, true
}
