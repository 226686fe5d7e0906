// Package pipeline drives the per-document extract and validate flow and
// hands the results to a persistence sink.
package pipeline

import (
	"context"
	"path"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/docval/internal/extract"
	"github.com/sells-group/docval/internal/model"
	"github.com/sells-group/docval/internal/resilience"
	"github.com/sells-group/docval/internal/source"
	"github.com/sells-group/docval/internal/validate"
)

// Sink receives the two output streams of a run.
type Sink interface {
	InsertRecords(ctx context.Context, runID string, recs []model.StructuredRecord) (int64, error)
	InsertDiscrepancies(ctx context.Context, runID string, discs []model.DiscrepancyRecord) (int64, error)
}

// Options tunes a Pipeline.
type Options struct {
	// Concurrency bounds how many documents are processed at once. Default: 1.
	Concurrency int
	// Write applies to each sink insert. A nil Write.Log falls back to the
	// pipeline logger.
	Write resilience.WritePolicy
}

// Pipeline processes every document of a Source.
type Pipeline struct {
	src       source.Source
	validator *validate.Validator
	log       *zap.Logger
	opts      Options
}

// New creates a Pipeline. log should already carry run-scoped fields.
func New(src source.Source, v *validate.Validator, log *zap.Logger, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{src: src, validator: v, log: log, opts: opts}
}

// Result holds the output of one run. All slices follow the source's
// document order.
type Result struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Records       []model.StructuredRecord
	Discrepancies []model.DiscrepancyRecord
	Outcomes      []model.DocumentOutcome
}

// documentResult is what one worker produces for one document.
type documentResult struct {
	record        *model.StructuredRecord
	discrepancies []model.DiscrepancyRecord
	outcome       model.DocumentOutcome
}

// Run lists the source and processes each document. Per-document failures
// are recorded in the outcomes; only a failure to list the source is
// returned as an error. Once ctx is cancelled no further documents start.
func (p *Pipeline) Run(ctx context.Context, runID string) (*Result, error) {
	res := &Result{RunID: runID, StartedAt: time.Now().UTC()}

	names, err := p.src.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list documents")
	}
	p.log.Info("pipeline: starting run", zap.Int("documents", len(names)), zap.Int("concurrency", p.opts.Concurrency))

	results := make([]documentResult, len(names))
	for i, name := range names {
		results[i].outcome = model.DocumentOutcome{FileName: path.Base(name), Status: model.StatusNotProcessed}
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = p.process(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.record != nil {
			res.Records = append(res.Records, *r.record)
		}
		res.Discrepancies = append(res.Discrepancies, r.discrepancies...)
		res.Outcomes = append(res.Outcomes, r.outcome)
	}
	res.FinishedAt = time.Now().UTC()

	if ctx.Err() != nil {
		p.log.Warn("pipeline: run interrupted", zap.Error(ctx.Err()))
	}
	return res, nil
}

// process reads, extracts and validates a single document. Extraction always
// completes before validation starts.
func (p *Pipeline) process(ctx context.Context, name string) documentResult {
	fileName := path.Base(name)
	log := p.log.With(zap.String("file", fileName))
	out := documentResult{outcome: model.DocumentOutcome{FileName: fileName}}

	fail := func(status model.ValidationStatus, err error) documentResult {
		log.Error("pipeline: skipping document", zap.String("status", string(status)), zap.Error(err))
		out.outcome.Status = status
		out.outcome.Error = err.Error()
		return out
	}

	log.Debug("pipeline: reading document")
	raw, err := p.src.Read(ctx, name)
	if err != nil {
		return fail(model.StatusError, err)
	}

	rec, err := extract.Table(fileName, raw)
	if err != nil {
		if extract.IsNoTableFound(err) {
			return fail(model.StatusNotFound, err)
		}
		return fail(model.StatusError, err)
	}
	out.outcome.DocumentID = rec.DocumentID

	vr, err := p.validator.Validate(rec)
	if err != nil {
		return fail(model.StatusError, err)
	}

	out.record = &rec
	out.discrepancies = model.NewDiscrepancyRecords(rec, vr.Discrepancies)
	out.outcome.Status = vr.Status
	out.outcome.Discrepancies = len(vr.Discrepancies)

	log.Info("pipeline: validated document",
		zap.String("document_id", rec.DocumentID),
		zap.String("status", string(vr.Status)),
		zap.Int("discrepancies", len(vr.Discrepancies)),
	)
	return out
}

// PersistResult reports what reached the sink.
type PersistResult struct {
	RecordsInserted       int64
	DiscrepanciesInserted int64
	Errors                []string
}

// Persist writes records and discrepancies to sink as two independent
// batches. Failures are logged and returned in the result, never as errors,
// so one failed batch does not prevent the other.
func (p *Pipeline) Persist(ctx context.Context, sink Sink, res *Result) PersistResult {
	var pr PersistResult

	w := p.opts.Write
	if w.Log == nil {
		w.Log = p.log
	}

	n, err := w.Insert(ctx, "records", func(ctx context.Context) (int64, error) {
		return sink.InsertRecords(ctx, res.RunID, res.Records)
	})
	if err != nil {
		p.log.Error("pipeline: insert records failed", zap.Int("records", len(res.Records)), zap.Error(err))
		pr.Errors = append(pr.Errors, err.Error())
	}
	pr.RecordsInserted = n

	n, err = w.Insert(ctx, "discrepancies", func(ctx context.Context) (int64, error) {
		return sink.InsertDiscrepancies(ctx, res.RunID, res.Discrepancies)
	})
	if err != nil {
		p.log.Error("pipeline: insert discrepancies failed", zap.Int("discrepancies", len(res.Discrepancies)), zap.Error(err))
		pr.Errors = append(pr.Errors, err.Error())
	}
	pr.DiscrepanciesInserted = n

	p.log.Info("pipeline: persisted run",
		zap.Int64("records", pr.RecordsInserted),
		zap.Int64("discrepancies", pr.DiscrepanciesInserted),
	)
	return pr
}
