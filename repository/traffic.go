package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Iqra-23/intrusion-backend/models"
)

type TrafficEventRepository struct {
	db *sql.DB
}

func NewTrafficEventRepository(db *sql.DB) *TrafficEventRepository {
	return &TrafficEventRepository{db: db}
}

// Create inserts a traffic event. Events are append-only; there is no update
// path.
func (r *TrafficEventRepository) Create(ctx context.Context, ev *models.TrafficEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	headers, err := json.Marshal(ev.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	var geo interface{}
	if ev.Geo != nil {
		b, err := json.Marshal(ev.Geo)
		if err != nil {
			return fmt.Errorf("marshal geo: %w", err)
		}
		geo = b
	}

	query := `INSERT INTO traffic_events
		(id, ip, method, path, status, user_agent, headers, session_id, user_id, geo,
		 module, is_spike, tags, anomaly_score, anomaly_reasons, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = r.db.ExecContext(ctx, query,
		ev.ID, ev.IP, ev.Method, ev.Path, ev.Status, ev.UserAgent, headers,
		ev.SessionID, ev.UserID, geo, ev.Module, ev.IsSpike,
		pq.Array(ev.Tags), ev.AnomalyScore, pq.Array(ev.AnomalyReasons),
		ev.DurationMs, ev.CreatedAt)
	return err
}

// TrafficFilter narrows List queries. Zero values mean "no constraint".
type TrafficFilter struct {
	Search     string
	IP         string
	Country    string
	Method     string
	Path       string
	Status     int
	SpikeOnly  bool
	MinAnomaly int
	Page       int
	Limit      int
}

func (f *TrafficFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 50
	}
}

func (r *TrafficEventRepository) List(ctx context.Context, filter TrafficFilter) ([]*models.TrafficEvent, int64, error) {
	filter.normalize()

	where, args := buildTrafficWhere(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM traffic_events" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, ip, method, path, status, user_agent, headers, session_id,
		user_id, geo, module, is_spike, tags, anomaly_score, anomaly_reasons, duration_ms, created_at
		FROM traffic_events%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		where, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*models.TrafficEvent
	for rows.Next() {
		ev, err := scanTrafficEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

func buildTrafficWhere(f TrafficFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(ip ILIKE $%d OR path ILIKE $%d OR user_agent ILIKE $%d OR geo->>'country' ILIKE $%d)",
			n, n, n, n))
	}
	if f.IP != "" {
		add("ip = $%d", f.IP)
	}
	if f.Country != "" {
		add("geo->>'country' = $%d", f.Country)
	}
	if f.Method != "" {
		add("method = $%d", strings.ToUpper(f.Method))
	}
	if f.Path != "" {
		add("path ILIKE $%d", "%"+f.Path+"%")
	}
	if f.Status != 0 {
		add("status = $%d", f.Status)
	}
	if f.SpikeOnly {
		conds = append(conds, "is_spike = true")
	}
	if f.MinAnomaly > 0 {
		add("anomaly_score >= $%d", f.MinAnomaly)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type trafficRow interface {
	Scan(dest ...interface{}) error
}

func scanTrafficEvent(row trafficRow) (*models.TrafficEvent, error) {
	ev := &models.TrafficEvent{}
	var headers []byte
	var geo []byte
	var userID uuid.NullUUID

	err := row.Scan(&ev.ID, &ev.IP, &ev.Method, &ev.Path, &ev.Status, &ev.UserAgent,
		&headers, &ev.SessionID, &userID, &geo, &ev.Module, &ev.IsSpike,
		pq.Array(&ev.Tags), &ev.AnomalyScore, pq.Array(&ev.AnomalyReasons),
		&ev.DurationMs, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		id := userID.UUID
		ev.UserID = &id
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &ev.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if len(geo) > 0 {
		ev.Geo = &models.Geo{}
		if err := json.Unmarshal(geo, ev.Geo); err != nil {
			return nil, fmt.Errorf("unmarshal geo: %w", err)
		}
	}
	return ev, nil
}

// RecentSpikes returns spike-flagged events newer than since, newest first.
func (r *TrafficEventRepository) RecentSpikes(ctx context.Context, since time.Time, limit int) ([]*models.TrafficEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, ip, method, path, status, user_agent, headers, session_id,
		user_id, geo, module, is_spike, tags, anomaly_score, anomaly_reasons, duration_ms, created_at
		FROM traffic_events WHERE is_spike = true AND created_at >= $1
		ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.TrafficEvent
	for rows.Next() {
		ev, err := scanTrafficEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *TrafficEventRepository) Stats(ctx context.Context) (*models.TrafficStats, error) {
	stats := &models.TrafficStats{}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT ip), COALESCE(AVG(anomaly_score), 0) FROM traffic_events`).
		Scan(&stats.Total, &stats.UniqueIPs, &stats.AvgAnomalyScore)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM traffic_events WHERE is_spike = true AND created_at >= $1`,
		time.Now().Add(-time.Hour)).Scan(&stats.SpikesLastHour)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM traffic_events WHERE anomaly_score >= 70 AND created_at >= $1`,
		time.Now().Add(-24*time.Hour)).Scan(&stats.HighAnomaly24h)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(geo->>'country', ''), COUNT(*) FROM traffic_events
		 GROUP BY 1 ORDER BY 2 DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cc models.CountryCount
		if err := rows.Scan(&cc.Country, &cc.Count); err != nil {
			return nil, err
		}
		stats.ByCountry = append(stats.ByCountry, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := r.db.QueryContext(ctx,
		`SELECT method, COUNT(*) FROM traffic_events GROUP BY method`)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var mc models.MethodCount
		if err := mrows.Scan(&mc.Method, &mc.Count); err != nil {
			return nil, err
		}
		stats.ByMethod = append(stats.ByMethod, mc)
	}
	return stats, mrows.Err()
}

// DeleteMany removes events by ID, or every event when ids is empty. This is
// the only way traffic events leave the table.
func (r *TrafficEventRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var res sql.Result
	var err error
	if len(ids) == 0 {
		res, err = r.db.ExecContext(ctx, `DELETE FROM traffic_events`)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM traffic_events WHERE id = ANY($1)`, pq.Array(ids))
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
