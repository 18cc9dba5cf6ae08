package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/inventory/stock"
	"medstock/internal/domain/ledger"
	"medstock/internal/infrastructure/http/v1/dto"
)

// StockHandler serves lot-level stock operations and the movement ledger.
type StockHandler struct {
	*BaseHandler
	stock  *stock.Service
	lots   *lot.Service
	ledger *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, stockSvc *stock.Service, lots *lot.Service, ledgerSvc *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		stock:       stockSvc,
		lots:        lots,
		ledger:      ledgerSvc,
	}
}

// Receive handles POST /stock/receive - register an incoming batch.
func (h *StockHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	l, err := h.stock.Receive(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, l)
}

// AdjustLot handles POST /lots/:id/adjust - manual quantity correction.
func (h *StockHandler) AdjustLot(c *gin.Context) {
	ctx := c.Request.Context()

	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	l, err := h.stock.Adjust(ctx, lotID, req.Delta, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, l)
}

// GetLot handles GET /lots/:id.
func (h *StockHandler) GetLot(c *gin.Context) {
	ctx := c.Request.Context()

	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	l, err := h.lots.GetByID(ctx, lotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, l)
}

// ListLots handles GET /facilities/:id/lots - stock on hand.
func (h *StockHandler) ListLots(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var query dto.LotListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter(facilityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.lots.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, listResponse(result))
}

// TotalQuantity handles GET /facilities/:id/stock/:productId - on-hand total.
func (h *StockHandler) TotalQuantity(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	total, err := h.lots.TotalQuantity(ctx, facilityID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"facilityId": facilityID,
		"productId":  productID,
		"quantity":   total,
	})
}

// ListMovements handles GET /facilities/:id/movements - ledger history.
func (h *StockHandler) ListMovements(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var query dto.MovementListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter(facilityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.ledger.History(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, listResponse(result))
}
