package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medstock/internal/domain/orders"
	"medstock/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves replenishment orders.
type OrderHandler struct {
	*BaseHandler
	service *orders.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *orders.Service) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ReceiveDelivery handles POST /orders/:id/deliveries - post delivered batches.
func (h *OrderHandler) ReceiveDelivery(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.ReceiveDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.ReceiveDelivery(ctx, docID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List handles GET /facilities/:id/orders.
func (h *OrderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var query dto.OrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.List(ctx, query.ToFilter(facilityID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, listResponse(result))
}
