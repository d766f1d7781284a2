package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type Database struct {
	conn *sql.DB
}

func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &Database{conn: db}, nil
}

func (d *Database) Conn() *sql.DB {
	return d.conn
}

func (d *Database) Close() error {
	return d.conn.Close()
}

func (d *Database) Ping() error {
	return d.conn.Ping()
}

func (d *Database) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT UNIQUE NOT NULL,
		role TEXT CHECK (role IN ('ADMIN', 'VIEWER')) DEFAULT 'VIEWER',
		created_at TIMESTAMP DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		api_key TEXT UNIQUE NOT NULL,
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMP DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS logs (
		id UUID PRIMARY KEY,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		keywords TEXT[] DEFAULT '{}',
		ip_address TEXT,
		user_agent TEXT,
		url TEXT,
		method TEXT,
		status_code INTEGER,
		user_id UUID,
		archived BOOLEAN DEFAULT false,
		created_at TIMESTAMP DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS traffic_events (
		id UUID PRIMARY KEY,
		ip TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INTEGER NOT NULL,
		user_agent TEXT,
		headers JSONB DEFAULT '{}',
		session_id TEXT,
		user_id UUID,
		geo JSONB,
		module TEXT,
		is_spike BOOLEAN DEFAULT false,
		tags TEXT[] DEFAULT '{}',
		anomaly_score INTEGER DEFAULT 0 CHECK (anomaly_score >= 0 AND anomaly_score <= 100),
		anomaly_reasons TEXT[] DEFAULT '{}',
		duration_ms BIGINT DEFAULT 0,
		created_at TIMESTAMP DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		log_id UUID NOT NULL REFERENCES logs(id),
		severity TEXT CHECK (severity IN ('critical', 'high', 'medium', 'low')) NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		keywords TEXT[] DEFAULT '{}',
		acknowledged BOOLEAN DEFAULT false,
		acknowledged_by UUID,
		acknowledged_at TIMESTAMP,
		resolved BOOLEAN DEFAULT false,
		resolved_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
	CREATE INDEX IF NOT EXISTS idx_logs_created ON logs(created_at);
	CREATE INDEX IF NOT EXISTS idx_traffic_ip ON traffic_events(ip);
	CREATE INDEX IF NOT EXISTS idx_traffic_session ON traffic_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_traffic_spike ON traffic_events(is_spike);
	CREATE INDEX IF NOT EXISTS idx_traffic_created ON traffic_events(created_at);
	CREATE INDEX IF NOT EXISTS idx_traffic_score ON traffic_events(anomaly_score);
	CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity, created_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_workflow ON alerts(acknowledged, resolved, created_at);
	`
	_, err := d.conn.Exec(schema)
	return err
}
