package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docval/internal/model"
)

// Collection identifies one of the persisted output streams.
type Collection string

const (
	Records       Collection = "records"
	Discrepancies Collection = "discrepancies"
)

// Collections returns every collection in a stable order.
func Collections() []Collection {
	return []Collection{Records, Discrepancies}
}

// ParseCollection maps a user supplied name onto a Collection.
func ParseCollection(s string) (Collection, error) {
	switch Collection(strings.ToLower(strings.TrimSpace(s))) {
	case Records:
		return Records, nil
	case Discrepancies:
		return Discrepancies, nil
	default:
		return "", eris.Errorf("store: unknown collection %q", s)
	}
}

// Tables maps each Collection onto a table name.
type Tables struct {
	Records       string `yaml:"records" mapstructure:"records"`
	Discrepancies string `yaml:"discrepancies" mapstructure:"discrepancies"`
}

// DefaultTables returns the default table names.
func DefaultTables() Tables {
	return Tables{Records: "documents", Discrepancies: "discrepancies"}
}

// Name returns the table backing c.
func (t Tables) Name(c Collection) string {
	switch c {
	case Records:
		return t.Records
	case Discrepancies:
		return t.Discrepancies
	default:
		panic("store: unhandled collection " + string(c))
	}
}

// Filter narrows Find results. Zero fields match everything.
type Filter struct {
	RunID      string `json:"run_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

const defaultLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultLimit
	}
	return f.Limit
}

// Store persists parsed records and discrepancies.
type Store interface {
	// Inserts are bulk writes; an empty batch is a no-op.
	InsertRecords(ctx context.Context, runID string, recs []model.StructuredRecord) (int64, error)
	InsertDiscrepancies(ctx context.Context, runID string, discs []model.DiscrepancyRecord) (int64, error)

	FindRecords(ctx context.Context, f Filter) ([]model.StoredRecord, error)
	FindDiscrepancies(ctx context.Context, f Filter) ([]model.DiscrepancyRecord, error)

	// Empty deletes every row of a collection and returns the count removed.
	Empty(ctx context.Context, c Collection) (int64, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// EmptyAll empties every collection, continuing past failures.
func EmptyAll(ctx context.Context, s Store) (map[Collection]int64, error) {
	removed := make(map[Collection]int64, len(Collections()))
	var firstErr error
	for _, c := range Collections() {
		n, err := s.Empty(ctx, c)
		if err != nil {
			if firstErr == nil {
				firstErr = eris.Wrapf(err, "store: empty %s", c)
			}
			continue
		}
		removed[c] = n
	}
	return removed, firstErr
}

// whereClause builds " WHERE ..." for f using placeholder(n) for the nth argument.
func whereClause(f Filter, placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, col+" = "+placeholder(len(args)))
	}
	add("run_id", f.RunID)
	add("file_name", f.FileName)
	add("document_id", f.DocumentID)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// nullable maps absent (empty) optional strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func marshalHeader(h []string) ([]byte, error) {
	if h == nil {
		return nil, nil
	}
	b, err := json.Marshal(h)
	return b, eris.Wrap(err, "store: marshal header")
}

func marshalBody(b [][]string) ([]byte, error) {
	if b == nil {
		b = [][]string{}
	}
	out, err := json.Marshal(b)
	return out, eris.Wrap(err, "store: marshal body")
}

func unmarshalRecordJSON(rec *model.StructuredRecord, header, body []byte) error {
	if len(header) > 0 {
		if err := json.Unmarshal(header, &rec.Header); err != nil {
			return eris.Wrap(err, "store: unmarshal header")
		}
	}
	rec.Body = [][]string{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rec.Body); err != nil {
			return eris.Wrap(err, "store: unmarshal body")
		}
	}
	return nil
}
