package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/docval/internal/db"
	"github.com/sells-group/docval/internal/model"
)

var (
	recordColumns = []string{
		"id", "run_id", "document_id", "file_name", "title", "header", "body",
		"footer", "country_of_creation", "date_of_creation", "created_at", "seq",
	}
	discrepancyColumns = []string{
		"id", "run_id", "document_id", "file_name", "type", "location", "description", "created_at", "seq",
	}
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	tables  Tables
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, tables Tables, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, tables: tables, closeFn: pool.Close}, nil
}

func (s *PostgresStore) migration() string {
	rt, dt := s.tables.Records, s.tables.Discrepancies
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL,
	document_id         TEXT,
	file_name           TEXT NOT NULL,
	title               TEXT,
	header              JSONB,
	body                JSONB NOT NULL,
	footer              TEXT,
	country_of_creation TEXT,
	date_of_creation    TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	seq                 INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	document_id TEXT,
	file_name   TEXT NOT NULL,
	type        TEXT NOT NULL,
	location    TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	seq         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s(file_name);
CREATE INDEX IF NOT EXISTS %[4]s ON %[1]s(run_id);
CREATE INDEX IF NOT EXISTS %[5]s ON %[2]s(file_name);
CREATE INDEX IF NOT EXISTS %[6]s ON %[2]s(run_id);
`,
		db.Sanitize(rt), db.Sanitize(dt),
		db.IndexName(rt, "file_name"), db.IndexName(rt, "run_id"),
		db.IndexName(dt, "file_name"), db.IndexName(dt, "run_id"),
	)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, s.migration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertRecords(ctx context.Context, runID string, recs []model.StructuredRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(recs))
	for i, r := range recs {
		header, err := marshalHeader(r.Header)
		if err != nil {
			return 0, err
		}
		body, err := marshalBody(r.Body)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			uuid.New().String(), runID, nullable(r.DocumentID), r.FileName, nullable(r.Title),
			header, body, nullable(r.Footer), nullable(r.CountryOfCreation), nullable(r.DateOfCreation), now, i,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, s.tables.Records, recordColumns, rows)
	return n, eris.Wrap(err, "postgres: insert records")
}

func (s *PostgresStore) InsertDiscrepancies(ctx context.Context, runID string, discs []model.DiscrepancyRecord) (int64, error) {
	if len(discs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(discs))
	for i, d := range discs {
		rows = append(rows, []any{
			uuid.New().String(), runID, nullable(d.DocumentID), d.FileName,
			string(d.Type), string(d.Location), nullable(d.Description), now, i,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, s.tables.Discrepancies, discrepancyColumns, rows)
	return n, eris.Wrap(err, "postgres: insert discrepancies")
}

func (s *PostgresStore) FindRecords(ctx context.Context, f Filter) ([]model.StoredRecord, error) {
	where, args := whereClause(f, pgPlaceholder)
	args = append(args, f.limit())
	query := fmt.Sprintf(
		`SELECT id, run_id, document_id, file_name, title, header, body, footer, country_of_creation, date_of_creation, created_at FROM %s%s ORDER BY created_at, seq LIMIT %s`,
		db.Sanitize(s.tables.Records), where, pgPlaceholder(len(args)),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find records")
	}
	defer rows.Close()

	var out []model.StoredRecord
	for rows.Next() {
		var (
			r                                      model.StoredRecord
			docID, title, footer, country, created *string
			header, body                           []byte
		)
		if err := rows.Scan(&r.ID, &r.RunID, &docID, &r.FileName, &title, &header, &body,
			&footer, &country, &created, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.DocumentID, r.Title, r.Footer = deref(docID), deref(title), deref(footer)
		r.CountryOfCreation, r.DateOfCreation = deref(country), deref(created)
		if err := unmarshalRecordJSON(&r.StructuredRecord, header, body); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: find records iterate")
}

func (s *PostgresStore) FindDiscrepancies(ctx context.Context, f Filter) ([]model.DiscrepancyRecord, error) {
	where, args := whereClause(f, pgPlaceholder)
	args = append(args, f.limit())
	query := fmt.Sprintf(
		`SELECT id, run_id, document_id, file_name, type, location, description, created_at FROM %s%s ORDER BY created_at, seq LIMIT %s`,
		db.Sanitize(s.tables.Discrepancies), where, pgPlaceholder(len(args)),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find discrepancies")
	}
	defer rows.Close()

	var out []model.DiscrepancyRecord
	for rows.Next() {
		var (
			d           model.DiscrepancyRecord
			docID, desc *string
			typ, loc    string
		)
		if err := rows.Scan(&d.ID, &d.RunID, &docID, &d.FileName, &typ, &loc, &desc, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan discrepancy")
		}
		d.DocumentID, d.Description = deref(docID), deref(desc)
		d.Type, d.Location = model.DiscrepancyType(typ), model.DiscrepancyLocation(loc)
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: find discrepancies iterate")
}

func (s *PostgresStore) Empty(ctx context.Context, c Collection) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+db.Sanitize(s.tables.Name(c)))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: empty %s", c)
	}
	return tag.RowsAffected(), nil
}

func pgPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
