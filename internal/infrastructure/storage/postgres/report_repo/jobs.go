package report_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/domain/reporting"
	"medstock/internal/infrastructure/storage/postgres"
)

const jobsTable = "sys_report_jobs"

var jobColumns = []string{
	"id", "facility_id", "period", "force", "status",
	"error", "requested_by", "created_at", "processed_at",
}

// JobRepo implements reporting.JobRepository: a Postgres-backed queue of
// report generation requests, drained by the worker process.
type JobRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewJobRepo creates a new report job repository.
func NewJobRepo(txManager *postgres.TxManager) *JobRepo {
	return &JobRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Enqueue inserts a pending job.
func (r *JobRepo) Enqueue(ctx context.Context, job *reporting.Job) error {
	q := r.builder.Insert(jobsTable).
		Columns(jobColumns...).
		Values(
			job.ID, job.FacilityID, job.Period, job.Force, job.Status,
			job.Error, job.RequestedBy, job.CreatedAt, job.ProcessedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	return nil
}

// DequeuePending claims up to limit pending jobs and marks them running.
// FOR UPDATE SKIP LOCKED lets multiple workers drain the queue without
// contending on the same rows.
func (r *JobRepo) DequeuePending(ctx context.Context, limit int) ([]*reporting.Job, error) {
	sql := fmt.Sprintf(`
		UPDATE %s SET status = $1
		WHERE id IN (
			SELECT id FROM %s
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, jobsTable, jobsTable, strings.Join(jobColumns, ", "))

	var jobs []*reporting.Job
	querier := r.txManager.GetQuerier(ctx)
	err := pgxscan.Select(ctx, querier, &jobs, sql, reporting.JobRunning, reporting.JobPending, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue jobs: %w", err)
	}

	return jobs, nil
}

// MarkDone records successful completion.
func (r *JobRepo) MarkDone(ctx context.Context, jobID id.ID) error {
	return r.finish(ctx, jobID, reporting.JobDone, nil)
}

// MarkFailed records a failure with its message.
func (r *JobRepo) MarkFailed(ctx context.Context, jobID id.ID, message string) error {
	return r.finish(ctx, jobID, reporting.JobFailed, &message)
}

func (r *JobRepo) finish(ctx context.Context, jobID id.ID, status reporting.JobStatus, message *string) error {
	q := r.builder.Update(jobsTable).
		Set("status", status).
		Set("error", message).
		Set("processed_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": jobID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(jobsTable, jobID.String())
	}

	return nil
}
