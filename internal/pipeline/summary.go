package pipeline

import (
	"time"

	"github.com/sells-group/docval/internal/model"
)

// Summary is the end-of-run report, including every document that produced
// no record.
type Summary struct {
	RunID                 string                  `json:"run_id" yaml:"run_id"`
	StartedAt             time.Time               `json:"started_at" yaml:"started_at"`
	FinishedAt            time.Time               `json:"finished_at" yaml:"finished_at"`
	Documents             int                     `json:"documents" yaml:"documents"`
	Valid                 int                     `json:"valid" yaml:"valid"`
	Invalid               int                     `json:"invalid" yaml:"invalid"`
	NotFound              int                     `json:"not_found" yaml:"not_found"`
	Errored               int                     `json:"errored" yaml:"errored"`
	NotProcessed          int                     `json:"not_processed" yaml:"not_processed"`
	Discrepancies         int                     `json:"discrepancies" yaml:"discrepancies"`
	RecordsInserted       int64                   `json:"records_inserted" yaml:"records_inserted"`
	DiscrepanciesInserted int64                   `json:"discrepancies_inserted" yaml:"discrepancies_inserted"`
	PersistErrors         []string                `json:"persist_errors,omitempty" yaml:"persist_errors,omitempty"`
	Skipped               []model.DocumentOutcome `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Summarize tallies a run. pr may be nil when nothing was persisted.
func Summarize(res *Result, pr *PersistResult) Summary {
	s := Summary{
		RunID:         res.RunID,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
		Documents:     len(res.Outcomes),
		Discrepancies: len(res.Discrepancies),
	}

	for _, o := range res.Outcomes {
		switch o.Status {
		case model.StatusValid:
			s.Valid++
		case model.StatusInvalid:
			s.Invalid++
		case model.StatusNotFound:
			s.NotFound++
		case model.StatusError:
			s.Errored++
		case model.StatusNotProcessed:
			s.NotProcessed++
		}
		if o.Skipped() {
			s.Skipped = append(s.Skipped, o)
		}
	}

	if pr != nil {
		s.RecordsInserted = pr.RecordsInserted
		s.DiscrepanciesInserted = pr.DiscrepanciesInserted
		s.PersistErrors = pr.Errors
	}
	return s
}
