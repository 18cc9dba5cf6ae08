package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/consumption"
	"medstock/internal/domain/reporting"
	"medstock/internal/infrastructure/http/v1/dto"
)

// ReportHandler serves monthly reports and consumption analytics.
type ReportHandler struct {
	*BaseHandler
	reports     *reporting.Service
	consumption *consumption.Service
	products    *product.Service
}

// NewReportHandler creates a new report handler.
func NewReportHandler(
	base *BaseHandler,
	reports *reporting.Service,
	consumptionSvc *consumption.Service,
	products *product.Service,
) *ReportHandler {
	return &ReportHandler{
		BaseHandler: base,
		reports:     reports,
		consumption: consumptionSvc,
		products:    products,
	}
}

// Generate handles POST /facilities/:id/reports - build a monthly report.
// With async=true the request only enqueues a job for the worker.
func (h *ReportHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.GenerateReportRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ParsePeriod()
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Async {
		job, err := h.reports.EnqueueGeneration(ctx, facilityID, p, req.Force, h.GetUserID(c))
		if err != nil {
			h.Error(c, err)
			return
		}
		c.JSON(http.StatusAccepted, job)
		return
	}

	report, err := h.reports.Generate(ctx, facilityID, p, req.Force)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// Get handles GET /reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	reportID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	report, err := h.reports.GetReport(ctx, reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// GetForPeriod handles GET /facilities/:id/reports/:period.
func (h *ReportHandler) GetForPeriod(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	p, err := dto.GenerateReportRequest{Period: c.Param("period")}.ParsePeriod()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.reports.GetForPeriod(ctx, facilityID, p)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// List handles GET /facilities/:id/reports.
func (h *ReportHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.reports.ListReports(ctx, facilityID, query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, listResponse(result))
}

// Submit handles POST /reports/:id/submit.
func (h *ReportHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	reportID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	report, err := h.reports.Submit(ctx, reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// Approve handles POST /reports/:id/approve.
func (h *ReportHandler) Approve(c *gin.Context) {
	ctx := c.Request.Context()

	reportID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	report, err := h.reports.Approve(ctx, reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// UpdateItem handles PUT /report-items/:id - manual adjustments and
// stockout days; the closing balance is re-derived.
func (h *ReportHandler) UpdateItem(c *gin.Context) {
	ctx := c.Request.Context()

	itemID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateReportItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.reports.UpdateItem(ctx, itemID, req.ToEdit())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, item)
}

// AMC handles GET /facilities/:id/products/:productId/amc.
func (h *ReportHandler) AMC(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	var query dto.AMCQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.consumption.ComputeAMC(ctx, facilityID, productID, query.Months)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// ReorderLevel handles GET /facilities/:id/products/:productId/reorder-level.
// Lead time defaults to the product master value unless overridden by query.
func (h *ReportHandler) ReorderLevel(c *gin.Context) {
	ctx := c.Request.Context()

	facilityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	var query dto.AMCQuery
	if !h.BindQuery(c, &query) {
		return
	}

	leadTime, err := query.ParseLeadTime()
	if err != nil {
		h.Error(c, err)
		return
	}
	if leadTime == nil {
		p, err := h.products.GetByID(ctx, productID)
		if err != nil {
			h.Error(c, err)
			return
		}
		leadTime = &p.LeadTimeMonths
	}

	level, err := h.consumption.ReorderLevel(ctx, facilityID, productID, *leadTime)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"facilityId":     facilityID,
		"productId":      productID,
		"leadTimeMonths": leadTime,
		"reorderLevel":   level,
	})
}
