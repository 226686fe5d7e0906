package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/docval/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	tables Tables
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, tables Tables) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, tables: tables}, nil
}

func (s *SQLiteStore) migration() string {
	rt, dt := quote(s.tables.Records), quote(s.tables.Discrepancies)
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL,
	document_id         TEXT,
	file_name           TEXT NOT NULL,
	title               TEXT,
	header              TEXT,
	body                TEXT NOT NULL,
	footer              TEXT,
	country_of_creation TEXT,
	date_of_creation    TEXT,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
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
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	seq         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s(file_name);
CREATE INDEX IF NOT EXISTS %[4]s ON %[1]s(run_id);
CREATE INDEX IF NOT EXISTS %[5]s ON %[2]s(file_name);
CREATE INDEX IF NOT EXISTS %[6]s ON %[2]s(run_id);
`,
		rt, dt,
		quote("idx_"+s.tables.Records+"_file_name"), quote("idx_"+s.tables.Records+"_run_id"),
		quote("idx_"+s.tables.Discrepancies+"_file_name"), quote("idx_"+s.tables.Discrepancies+"_run_id"),
	)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.migration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertRecords(ctx context.Context, runID string, recs []model.StructuredRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, run_id, document_id, file_name, title, header, body, footer, country_of_creation, date_of_creation, created_at, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote(s.tables.Records),
	)
	now := time.Now().UTC()

	return s.insertBatch(ctx, "records", query, len(recs), func(i int) ([]any, error) {
		r := recs[i]
		header, err := marshalHeader(r.Header)
		if err != nil {
			return nil, err
		}
		body, err := marshalBody(r.Body)
		if err != nil {
			return nil, err
		}
		var headerVal any
		if header != nil {
			headerVal = string(header)
		}
		return []any{
			uuid.New().String(), runID, nullable(r.DocumentID), r.FileName, nullable(r.Title),
			headerVal, string(body), nullable(r.Footer), nullable(r.CountryOfCreation), nullable(r.DateOfCreation), now, i,
		}, nil
	})
}

func (s *SQLiteStore) InsertDiscrepancies(ctx context.Context, runID string, discs []model.DiscrepancyRecord) (int64, error) {
	if len(discs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, run_id, document_id, file_name, type, location, description, created_at, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote(s.tables.Discrepancies),
	)
	now := time.Now().UTC()

	return s.insertBatch(ctx, "discrepancies", query, len(discs), func(i int) ([]any, error) {
		d := discs[i]
		return []any{
			uuid.New().String(), runID, nullable(d.DocumentID), d.FileName,
			string(d.Type), string(d.Location), nullable(d.Description), now, i,
		}, nil
	})
}

// insertBatch runs one prepared INSERT per row inside a single transaction.
func (s *SQLiteStore) insertBatch(ctx context.Context, what, query string, n int, rowAt func(i int) ([]any, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert %s: begin tx", what)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert %s: prepare", what)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		args, err := rowAt(i)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s row %d", what, i)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert %s: commit", what)
	}
	return int64(n), nil
}

func (s *SQLiteStore) FindRecords(ctx context.Context, f Filter) ([]model.StoredRecord, error) {
	where, args := whereClause(f, sqlitePlaceholder)
	args = append(args, f.limit())
	query := fmt.Sprintf(
		`SELECT id, run_id, document_id, file_name, title, header, body, footer, country_of_creation, date_of_creation, created_at FROM %s%s ORDER BY created_at, seq LIMIT ?`,
		quote(s.tables.Records), where,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find records")
	}
	defer rows.Close()

	var out []model.StoredRecord
	for rows.Next() {
		var (
			r                                      model.StoredRecord
			docID, title, footer, country, created sql.NullString
			header                                 sql.NullString
			body                                   string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &docID, &r.FileName, &title, &header, &body,
			&footer, &country, &created, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		r.DocumentID, r.Title, r.Footer = docID.String, title.String, footer.String
		r.CountryOfCreation, r.DateOfCreation = country.String, created.String
		var headerJSON []byte
		if header.Valid {
			headerJSON = []byte(header.String)
		}
		if err := unmarshalRecordJSON(&r.StructuredRecord, headerJSON, []byte(body)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: find records iterate")
}

func (s *SQLiteStore) FindDiscrepancies(ctx context.Context, f Filter) ([]model.DiscrepancyRecord, error) {
	where, args := whereClause(f, sqlitePlaceholder)
	args = append(args, f.limit())
	query := fmt.Sprintf(
		`SELECT id, run_id, document_id, file_name, type, location, description, created_at FROM %s%s ORDER BY created_at, seq LIMIT ?`,
		quote(s.tables.Discrepancies), where,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find discrepancies")
	}
	defer rows.Close()

	var out []model.DiscrepancyRecord
	for rows.Next() {
		var (
			d           model.DiscrepancyRecord
			docID, desc sql.NullString
			typ, loc    string
		)
		if err := rows.Scan(&d.ID, &d.RunID, &docID, &d.FileName, &typ, &loc, &desc, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan discrepancy")
		}
		d.DocumentID, d.Description = docID.String, desc.String
		d.Type, d.Location = model.DiscrepancyType(typ), model.DiscrepancyLocation(loc)
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: find discrepancies iterate")
}

func (s *SQLiteStore) Empty(ctx context.Context, c Collection) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+quote(s.tables.Name(c)))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: empty %s", c)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func sqlitePlaceholder(int) string { return "?" }

// quote returns a double-quoted SQLite identifier.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
