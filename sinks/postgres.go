package sinks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/simon020286/go-manifest/models"
)

const DefaultTable = "run_manifests"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Execer is the subset of *pgx.Conn the postgres sink uses
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresSink upserts reports into a table keyed by run id.
// The connection is opened on the first write.
type PostgresSink struct {
	dsn     string
	table   pgx.Identifier
	connect func(ctx context.Context, dsn string) (Execer, func(context.Context) error, error)

	conn    Execer
	close   func(context.Context) error
	ensured bool
}

func NewPostgresSink(dsn, table string) (*PostgresSink, error) {
	ident, err := ParseTable(table)
	if err != nil {
		return nil, err
	}
	return &PostgresSink{dsn: dsn, table: ident, connect: connectPgx}, nil
}

// NewPostgresSinkWithConn uses an existing connection; Close leaves it open
func NewPostgresSinkWithConn(conn Execer, table string) (*PostgresSink, error) {
	if conn == nil {
		return nil, errors.New("postgres connection is required")
	}
	ident, err := ParseTable(table)
	if err != nil {
		return nil, err
	}
	return &PostgresSink{table: ident, conn: conn}, nil
}

// ParseTable validates a table name, optionally schema-qualified ("audit.run_manifests")
func ParseTable(table string) (pgx.Identifier, error) {
	if table == "" {
		table = DefaultTable
	}
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, p := range parts {
		if !identPattern.MatchString(p) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

func (s *PostgresSink) Write(ctx context.Context, report *models.Report) error {
	if strings.TrimSpace(report.ID) == "" {
		return models.ErrMissingConfig("report id")
	}

	if s.conn == nil {
		conn, closeFn, err := s.connect(ctx, s.dsn)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		s.conn, s.close = conn, closeFn
	}

	if !s.ensured {
		if _, err := s.conn.Exec(ctx, s.createTableSQL()); err != nil {
			return fmt.Errorf("create table %s: %w", s.table.Sanitize(), err)
		}
		s.ensured = true
	}

	data, err := models.Encode(report)
	if err != nil {
		return err
	}

	if _, err := s.conn.Exec(ctx, s.upsertSQL(), report.ID, report.Start, report.End, string(data)); err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	if s.close == nil {
		return nil
	}
	closeFn := s.close
	s.conn, s.close, s.ensured = nil, nil, false
	return closeFn(context.Background())
}

func (s *PostgresSink) createTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + s.table.Sanitize() + ` (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL,
	document JSONB NOT NULL
)`
}

func (s *PostgresSink) upsertSQL() string {
	return `INSERT INTO ` + s.table.Sanitize() + ` (id, started_at, ended_at, document)
VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (id) DO UPDATE SET ended_at = EXCLUDED.ended_at, document = EXCLUDED.document`
}

func connectPgx(ctx context.Context, dsn string) (Execer, func(context.Context) error, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

// splitTable removes the table query parameter from a postgres URL
func splitTable(target *url.URL) (dsn string, table string) {
	u := *target
	q := u.Query()
	table = q.Get("table")
	q.Del("table")
	u.RawQuery = q.Encode()
	return u.String(), table
}

func init() {
	Register(SchemePostgres, func(target *url.URL) (Sink, error) {
		dsn, table := splitTable(target)
		return NewPostgresSink(dsn, table)
	})
}
