package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medstock/internal/domain/dispensing"
	"medstock/internal/infrastructure/http/v1/dto"
)

// DispenseHandler serves dispensing documents.
type DispenseHandler struct {
	*BaseHandler
	service *dispensing.Service
}

// NewDispenseHandler creates a new dispense handler.
func NewDispenseHandler(base *BaseHandler, service *dispensing.Service) *DispenseHandler {
	return &DispenseHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /dispenses - allocate and issue stock in one shot.
func (h *DispenseHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateDispenseRequest
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

// Get handles GET /dispenses/:id.
func (h *DispenseHandler) Get(c *gin.Context) {
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

// List handles GET /facilities/:id/dispenses.
func (h *DispenseHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var query dto.DispenseListQuery
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
