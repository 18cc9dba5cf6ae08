package reporting

import (
	"context"
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/domain"
)

// Repository defines the interface for monthly report persistence.
type Repository interface {
	// CreateReport inserts a report header.
	CreateReport(ctx context.Context, r *MonthlyReport) error

	// UpdateReport persists header changes (status, timestamps).
	UpdateReport(ctx context.Context, r *MonthlyReport) error

	// GetReport retrieves a header with its items.
	GetReport(ctx context.Context, reportID id.ID) (*MonthlyReport, error)

	// GetReportForPeriod retrieves the header for (facility, period), items
	// included, or a not-found error.
	GetReportForPeriod(ctx context.Context, facilityID id.ID, p period.Period) (*MonthlyReport, error)

	// ListReports retrieves headers for a facility, most recent first.
	ListReports(ctx context.Context, facilityID id.ID, filter domain.ListFilter) (domain.ListResult[*MonthlyReport], error)

	// InsertItems bulk-inserts report rows.
	InsertItems(ctx context.Context, items []*ReportItem) error

	// DeleteItems removes all rows of a report (force regeneration).
	DeleteItems(ctx context.Context, reportID id.ID) error

	// GetItem retrieves one row.
	GetItem(ctx context.Context, itemID id.ID) (*ReportItem, error)

	// UpdateItem persists a manually edited row.
	UpdateItem(ctx context.Context, item *ReportItem) error
}

// JobStatus is the state of a queued generation job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is one queued report generation, processed by the worker.
type Job struct {
	ID          id.ID         `db:"id" json:"id"`
	FacilityID  id.ID         `db:"facility_id" json:"facilityId"`
	Period      period.Period `db:"period" json:"period"`
	Force       bool          `db:"force" json:"force"`
	Status      JobStatus     `db:"status" json:"status"`
	Error       *string       `db:"error" json:"error,omitempty"`
	RequestedBy string        `db:"requested_by" json:"requestedBy,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	ProcessedAt *time.Time    `db:"processed_at" json:"processedAt,omitempty"`
}

// JobRepository defines the report job queue.
type JobRepository interface {
	// Enqueue inserts a pending job.
	Enqueue(ctx context.Context, job *Job) error

	// DequeuePending claims up to limit pending jobs (FOR UPDATE SKIP
	// LOCKED) and marks them running.
	DequeuePending(ctx context.Context, limit int) ([]*Job, error)

	// MarkDone records successful completion.
	MarkDone(ctx context.Context, jobID id.ID) error

	// MarkFailed records a failure with its message.
	MarkFailed(ctx context.Context, jobID id.ID, message string) error
}
