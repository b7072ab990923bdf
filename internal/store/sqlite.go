package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type DB struct {
	*sql.DB
	driver string
}

// Open connects to the database and creates the record tables when missing.
func Open(driver, dsn string) (*DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	d := &DB{DB: db, driver: driver}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) migrate() error {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS events(
		` + id + `,
		ts DOUBLE PRECISION,
		level TEXT,
		code TEXT,
		msg TEXT,
		meta TEXT
	)`,
		// Pre-run input snapshots
		`CREATE TABLE IF NOT EXISTS inputs(
		` + id + `,
		ts DOUBLE PRECISION,
		model_name TEXT,
		uuid TEXT,
		created_by TEXT,
		inputs_json TEXT,
		tags_json TEXT
	)`,
		`CREATE TABLE IF NOT EXISTS results(
		` + id + `,
		ts DOUBLE PRECISION,
		model_name TEXT,
		uuid TEXT,
		execution_time DOUBLE PRECISION,
		result_json TEXT,
		tags_json TEXT
	)`,
		// Audit trail
		`CREATE TABLE IF NOT EXISTS model_runs(
		` + id + `,
		ts DOUBLE PRECISION,
		model_name TEXT,
		execution_uuid TEXT,
		flow_uuid TEXT,
		execution_time DOUBLE PRECISION,
		result_json TEXT,
		error_json TEXT,
		tags_json TEXT
	)`,
	}

	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) error {
	_, err := db.ExecContext(ctx, db.rebind(query), args...)
	return err
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, db.rebind(query), args...)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(ts float64) time.Time {
	return time.Unix(0, int64(ts*1e9))
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Event records an operational event. Startup callers ignore the error.
func (db *DB) Event(level, code, msg string, meta map[string]interface{}) error {
	m := ""
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to encode event meta: %w", err)
		}
		m = string(b)
	}
	return db.exec(context.Background(), `INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`,
		unixSeconds(time.Now()), level, code, msg, m)
}

func (db *DB) Input(ctx context.Context, start time.Time, modelName, uuid, createdBy string, inputs, tags any) error {
	in, err := toJSON(inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}
	tg, err := toJSON(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	return db.exec(ctx, `INSERT INTO inputs(ts, model_name, uuid, created_by, inputs_json, tags_json) VALUES(?,?,?,?,?,?)`,
		unixSeconds(start), modelName, uuid, createdBy, in, tg)
}

func (db *DB) Result(ctx context.Context, start time.Time, modelName, uuid string, execTime float64, result, tags any) error {
	res, err := toJSON(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	tg, err := toJSON(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	return db.exec(ctx, `INSERT INTO results(ts, model_name, uuid, execution_time, result_json, tags_json) VALUES(?,?,?,?,?,?)`,
		unixSeconds(start), modelName, uuid, execTime, res, tg)
}

func (db *DB) ModelRun(ctx context.Context, ts time.Time, modelName, execUUID, flowUUID string, execTime float64, result, errVal, tags any) error {
	res, err := toJSON(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	ev, err := toJSON(errVal)
	if err != nil {
		return fmt.Errorf("failed to encode error: %w", err)
	}
	tg, err := toJSON(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	return db.exec(ctx, `INSERT INTO model_runs(ts, model_name, execution_uuid, flow_uuid, execution_time, result_json, error_json, tags_json) VALUES(?,?,?,?,?,?,?,?)`,
		unixSeconds(ts), modelName, execUUID, flowUUID, execTime, res, ev, tg)
}

// RunRow is one row of the model_runs table.
type RunRow struct {
	ID            int64
	Timestamp     time.Time
	ModelName     string
	ExecutionUUID string
	FlowUUID      string
	ExecutionTime float64
	ResultJSON    string
	ErrorJSON     string
}

// ModelRuns returns the newest runs first. An empty modelName matches all.
func (db *DB) ModelRuns(ctx context.Context, modelName string, limit int) ([]RunRow, error) {
	q := `SELECT id, ts, model_name, execution_uuid, flow_uuid, execution_time, result_json, error_json FROM model_runs`
	args := []any{}
	if modelName != "" {
		q += ` WHERE model_name = ?`
		args = append(args, modelName)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var ts float64
		if err := rows.Scan(&r.ID, &ts, &r.ModelName, &r.ExecutionUUID, &r.FlowUUID,
			&r.ExecutionTime, &r.ResultJSON, &r.ErrorJSON); err != nil {
			return nil, err
		}
		r.Timestamp = fromUnixSeconds(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of rows in one of the record tables.
func (db *DB) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "inputs", "results", "model_runs", "events":
	default:
		return 0, fmt.Errorf("unknown table: %s", table)
	}
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
