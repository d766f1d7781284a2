package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Iqra-23/intrusion-backend/models"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	query := `INSERT INTO alerts (id, log_id, severity, title, description, keywords, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.LogID, alert.Severity, alert.Title, alert.Description,
		pq.Array(alert.Keywords), alert.CreatedAt)
	return err
}

type AlertFilter struct {
	Severity     models.Severity
	Acknowledged *bool
	Resolved     *bool
	Page         int
	Limit        int
}

func (r *AlertRepository) List(ctx context.Context, filter AlertFilter) ([]*models.Alert, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 50
	}

	var conds []string
	var args []interface{}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Acknowledged != nil {
		args = append(args, *filter.Acknowledged)
		conds = append(conds, fmt.Sprintf("acknowledged = $%d", len(args)))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		conds = append(conds, fmt.Sprintf("resolved = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, log_id, severity, title, description, keywords,
		acknowledged, acknowledged_by, acknowledged_at, resolved, resolved_at, created_at
		FROM alerts%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		where, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a := &models.Alert{}
		var ackBy uuid.NullUUID
		var ackAt, resolvedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.LogID, &a.Severity, &a.Title, &a.Description,
			pq.Array(&a.Keywords), &a.Acknowledged, &ackBy, &ackAt,
			&a.Resolved, &resolvedAt, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		if ackBy.Valid {
			id := ackBy.UUID
			a.AcknowledgedBy = &id
		}
		if ackAt.Valid {
			t := ackAt.Time
			a.AcknowledgedAt = &t
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}

// Acknowledge and Resolve are independent workflow flags; either may be set
// without the other.

func (r *AlertRepository) Acknowledge(ctx context.Context, id uuid.UUID, by *uuid.UUID) error {
	query := `UPDATE alerts SET acknowledged = true, acknowledged_by = $1, acknowledged_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, by, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE alerts SET resolved = true, resolved_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *AlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
