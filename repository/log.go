package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Iqra-23/intrusion-backend/models"
)

type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(ctx context.Context, rec *models.LogRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `INSERT INTO logs
		(id, level, message, keywords, ip_address, user_agent, url, method, status_code, user_id, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Level, rec.Message, pq.Array(rec.Keywords), rec.IPAddress,
		rec.UserAgent, rec.URL, rec.Method, rec.StatusCode, rec.UserID,
		rec.Archived, rec.CreatedAt)
	return err
}

type LogFilter struct {
	Search   string
	Level    models.LogLevel
	Archived bool
	Page     int
	Limit    int
}

func (r *LogRepository) List(ctx context.Context, filter LogFilter) ([]*models.LogRecord, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 50
	}

	where := " WHERE archived = $1"
	args := []interface{}{filter.Archived}
	if filter.Level != "" {
		args = append(args, filter.Level)
		where += fmt.Sprintf(" AND level = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (message ILIKE $%d OR array_to_string(keywords, ',') ILIKE $%d)", n, n)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, level, message, keywords, ip_address, user_agent, url, method,
		status_code, user_id, archived, created_at FROM logs%s
		ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		where, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*models.LogRecord
	for rows.Next() {
		rec := &models.LogRecord{}
		var userID uuid.NullUUID
		var ip, ua, url, method sql.NullString
		var status sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Level, &rec.Message, pq.Array(&rec.Keywords),
			&ip, &ua, &url, &method, &status, &userID, &rec.Archived, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		rec.IPAddress = ip.String
		rec.UserAgent = ua.String
		rec.URL = url.String
		rec.Method = method.String
		rec.StatusCode = int(status.Int64)
		if userID.Valid {
			id := userID.UUID
			rec.UserID = &id
		}
		logs = append(logs, rec)
	}
	return logs, total, rows.Err()
}

func (r *LogRepository) Stats(ctx context.Context) (*models.LogStats, error) {
	stats := &models.LogStats{}
	query := `SELECT
		COUNT(*) FILTER (WHERE NOT archived),
		COUNT(*) FILTER (WHERE level = 'error' AND NOT archived),
		COUNT(*) FILTER (WHERE level = 'warning' AND NOT archived),
		COUNT(*) FILTER (WHERE level = 'suspicious' AND NOT archived),
		COUNT(*) FILTER (WHERE archived)
		FROM logs`
	err := r.db.QueryRowContext(ctx, query).
		Scan(&stats.Total, &stats.Errors, &stats.Warnings, &stats.Suspicious, &stats.Archived)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *LogRepository) Archive(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE logs SET archived = true WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
