package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medstock/internal/domain/transfers"
	"medstock/internal/infrastructure/http/v1/dto"
)

// TransferHandler serves transfer documents.
type TransferHandler struct {
	*BaseHandler
	service *transfers.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfers.Service) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transfers - draft a transfer.
func (h *TransferHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTransferRequest
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

// Dispatch handles POST /transfers/:id/dispatch - issue stock at the source.
func (h *TransferHandler) Dispatch(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Dispatch(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Receive handles POST /transfers/:id/receive - receive stock at the destination.
func (h *TransferHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Receive(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Get handles GET /transfers/:id.
func (h *TransferHandler) Get(c *gin.Context) {
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

// List handles GET /facilities/:id/transfers - either side of the transfer.
func (h *TransferHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var query dto.TransferListQuery
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
