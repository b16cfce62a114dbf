package handler

import (
	"net/http"
	"strconv"

	"salesdesk_backend/internal/deals/service"
	"salesdesk_backend/internal/deals/transport"
	"salesdesk_backend/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/close", h.Close)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	deals, err := h.svc.ListDeals(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToDealResponses(deals))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	deal, err := h.svc.GetDeal(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToDealResponse(deal))
}

func (h *Handler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.CloseDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	deal, err := h.svc.CloseDeal(c.Request.Context(), id, req.Won)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, transport.ToDealResponse(deal))
}
