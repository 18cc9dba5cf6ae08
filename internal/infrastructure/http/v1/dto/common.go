// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// --- List parameters ---

// ListQuery contains common list parameters.
type ListQuery struct {
	Search          string `form:"search"`
	IncludeInactive bool   `form:"includeInactive"`
	OrderBy         string `form:"orderBy"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset          int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts query parameters to a domain filter with defaults.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.IncludeInactive = q.IncludeInactive
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	return f
}

// PageQuery contains bare pagination parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults applies the default page size.
func (q *PageQuery) Defaults() {
	if q.Limit == 0 {
		q.Limit = 50
	}
}

// --- List Response ---

// ListResponse wraps a page of items.
type ListResponse struct {
	Items      []any `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SetActiveRequest toggles a catalog record's active flag.
// Pointer so that `false` is distinguishable from an omitted field.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ParseID parses a path/query UUID or returns a validation error.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.ID{}, apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}
