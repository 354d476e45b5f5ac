package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/repository"
)

type reportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = `id, booking_id, reporter_id, type, status, fields, dispute_reason, resolution,
	confirmed_by, confirmed_at, disputed_by, disputed_at, resolved_by, resolved_at, created_on, updated_on`

func (r *reportRepository) Create(ctx context.Context, rep *domain.ConditionReport) error {
	fields, err := json.Marshal(rep.Fields)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rep.CreatedOn = now
	rep.UpdatedOn = now
	query := `INSERT INTO condition_reports (id, booking_id, reporter_id, type, status, fields, dispute_reason, resolution, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query, rep.ID, rep.BookingID, rep.ReporterID, rep.Type, rep.Status, fields, rep.DisputeReason, rep.Resolution, rep.CreatedOn, rep.UpdatedOn)
	return err
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.ConditionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM condition_reports WHERE id = $1`
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *reportRepository) GetActiveByBookingAndType(ctx context.Context, bookingID string, t domain.ReportType) (*domain.ConditionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM condition_reports WHERE booking_id = $1 AND type = $2 AND status != $3`
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, bookingID, t, domain.ReportStatusCancelled))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *reportRepository) Update(ctx context.Context, rep *domain.ConditionReport) error {
	fields, err := json.Marshal(rep.Fields)
	if err != nil {
		return err
	}
	rep.UpdatedOn = time.Now().UTC()
	query := `UPDATE condition_reports
	          SET status = $1, fields = $2, dispute_reason = $3, resolution = $4,
	              confirmed_by = $5, confirmed_at = $6, disputed_by = $7, disputed_at = $8,
	              resolved_by = $9, resolved_at = $10, updated_on = $11
	          WHERE id = $12`
	_, err = r.db.ExecContext(ctx, query, rep.Status, fields, rep.DisputeReason, rep.Resolution,
		rep.ConfirmedBy, rep.ConfirmedAt, rep.DisputedBy, rep.DisputedAt,
		rep.ResolvedBy, rep.ResolvedAt, rep.UpdatedOn, rep.ID)
	return err
}

func (r *reportRepository) CountByStatus(ctx context.Context) (map[domain.ReportStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM condition_reports GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ReportStatus]int64)
	for rows.Next() {
		var status domain.ReportStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanReport(row interface{ Scan(...any) error }) (*domain.ConditionReport, error) {
	rep := &domain.ConditionReport{}
	var fields []byte
	err := row.Scan(&rep.ID, &rep.BookingID, &rep.ReporterID, &rep.Type, &rep.Status, &fields,
		&rep.DisputeReason, &rep.Resolution,
		&rep.ConfirmedBy, &rep.ConfirmedAt, &rep.DisputedBy, &rep.DisputedAt,
		&rep.ResolvedBy, &rep.ResolvedAt, &rep.CreatedOn, &rep.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &rep.Fields); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
