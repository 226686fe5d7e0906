package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/docval/internal/model"
	"github.com/sells-group/docval/internal/resilience"
	"github.com/sells-group/docval/internal/source"
	"github.com/sells-group/docval/internal/validate"
)

const validDoc = `<html><body><table id="valid-1">
<caption>Annual Report</caption>
<tr><th>Label</th><th>A</th><th>B</th></tr>
<tr><td>row1</td><td>1</td><td>2</td></tr>
<tfoot><tr><td>Creation: 5Jan2024 Germany</td></tr></tfoot>
</table></body></html>`

const invalidDoc = `<html><body><table id="invalid-1">
<caption>Hi</caption>
<tr><th>Label</th><th>A</th></tr>
<tr><td>row1</td><td>50</td></tr>
</table></body></html>`

const noTableDoc = `<html><body><p>no table</p></body></html>`

const badCellDoc = `<table id="bad-1"><caption>Broken numbers</caption>
<tr><th>L</th><th>A</th></tr><tr><td>r</td><td>abc</td></tr></table>`

func testValidator(t *testing.T) *validate.Validator {
	t.Helper()
	bound, err := validate.ParseBoundDate("2024-12-31")
	require.NoError(t, err)
	return validate.New(validate.Rules{MinTitleLength: 5, MaxCreationDate: bound, MaxRowSum: 10})
}

func writeDocs(t *testing.T, docs map[string]string) source.Source {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	src, err := source.NewDir(dir)
	require.NoError(t, err)
	return src
}

func noRetry() resilience.WritePolicy {
	return resilience.WritePolicy{Attempts: 1}
}

func TestRun_MixedDocuments(t *testing.T) {
	src := writeDocs(t, map[string]string{
		"0_valid.html":   validDoc,
		"1_invalid.html": invalidDoc,
		"2_notable.html": noTableDoc,
		"3_badcell.html": badCellDoc,
	})
	p := New(src, testValidator(t), zap.NewNop(), Options{Concurrency: 3})

	res, err := p.Run(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)

	require.Len(t, res.Outcomes, 4)
	assert.Equal(t, model.StatusValid, res.Outcomes[0].Status)
	assert.Equal(t, model.StatusInvalid, res.Outcomes[1].Status)
	assert.Equal(t, 3, res.Outcomes[1].Discrepancies)
	assert.Equal(t, model.StatusNotFound, res.Outcomes[2].Status)
	assert.Equal(t, model.StatusError, res.Outcomes[3].Status)
	assert.Contains(t, res.Outcomes[3].Error, "not an integer")

	require.Len(t, res.Records, 2, "failed documents produce no record")
	assert.Equal(t, "0_valid.html", res.Records[0].FileName)
	assert.Equal(t, "valid-1", res.Records[0].DocumentID)
	assert.Equal(t, "Germany", res.Records[0].CountryOfCreation)
	assert.Equal(t, "1_invalid.html", res.Records[1].FileName)

	require.Len(t, res.Discrepancies, 3)
	for _, d := range res.Discrepancies {
		assert.Equal(t, "invalid-1", d.DocumentID)
		assert.Equal(t, "1_invalid.html", d.FileName)
	}
	assert.Equal(t, model.LocationTitle, res.Discrepancies[0].Location)
	assert.Equal(t, model.DiscrepancyInvalidValue, res.Discrepancies[0].Type)
	assert.Equal(t, model.LocationCreationDate, res.Discrepancies[1].Location)
	assert.Equal(t, model.DiscrepancyMissing, res.Discrepancies[1].Type)
	assert.Equal(t, model.LocationBody, res.Discrepancies[2].Location)
	assert.Equal(t, "sum of first row is greater than: 10", res.Discrepancies[2].Description)
}

func TestRun_ConcurrencyDoesNotChangeResults(t *testing.T) {
	docs := map[string]string{}
	for i, d := range []string{validDoc, invalidDoc, validDoc, invalidDoc, noTableDoc, validDoc} {
		docs[string(rune('a'+i))+".html"] = d
	}
	src := writeDocs(t, docs)

	serial, err := New(src, testValidator(t), nil, Options{Concurrency: 1}).Run(context.Background(), "r")
	require.NoError(t, err)
	parallel, err := New(src, testValidator(t), nil, Options{Concurrency: 6}).Run(context.Background(), "r")
	require.NoError(t, err)

	assert.Equal(t, serial.Records, parallel.Records)
	assert.Equal(t, serial.Discrepancies, parallel.Discrepancies)
	assert.Equal(t, serial.Outcomes, parallel.Outcomes)
}

func TestRun_ListError(t *testing.T) {
	src := &mockSource{}
	src.On("List", mock.Anything).Return(nil, errors.New("permission denied"))

	_, err := New(src, testValidator(t), nil, Options{}).Run(context.Background(), "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list documents")
}

func TestRun_ReadErrorSkipsDocument(t *testing.T) {
	src := &mockSource{}
	src.On("List", mock.Anything).Return([]string{"a.html", "b.html"}, nil)
	src.On("Read", mock.Anything, "a.html").Return(nil, errors.New("disk error"))
	src.On("Read", mock.Anything, "b.html").Return([]byte(validDoc), nil)

	res, err := New(src, testValidator(t), nil, Options{}).Run(context.Background(), "r")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, model.StatusError, res.Outcomes[0].Status)
	assert.Equal(t, model.StatusValid, res.Outcomes[1].Status)
	assert.Len(t, res.Records, 1)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	src := writeDocs(t, map[string]string{"a.html": validDoc, "b.html": validDoc})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(src, testValidator(t), nil, Options{}).Run(ctx, "r")
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	for _, o := range res.Outcomes {
		assert.Equal(t, model.StatusNotProcessed, o.Status)
	}
	assert.Empty(t, res.Records)
}

func TestRun_ZipSourceUsesBaseName(t *testing.T) {
	src := &mockSource{}
	src.On("List", mock.Anything).Return([]string{"docs/0_table.html"}, nil)
	src.On("Read", mock.Anything, "docs/0_table.html").Return([]byte(validDoc), nil)

	res, err := New(src, testValidator(t), nil, Options{}).Run(context.Background(), "r")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "0_table.html", res.Records[0].FileName)
}

func TestPersist_WritesBothBatches(t *testing.T) {
	res := &Result{
		RunID:   "run-1",
		Records: []model.StructuredRecord{{FileName: "a.html"}},
		Discrepancies: []model.DiscrepancyRecord{{
			FileName:    "a.html",
			Discrepancy: model.Discrepancy{Type: model.DiscrepancyMissing, Location: model.LocationTitle},
		}},
	}

	sink := &mockSink{}
	sink.On("InsertRecords", mock.Anything, "run-1", res.Records).Return(int64(1), nil)
	sink.On("InsertDiscrepancies", mock.Anything, "run-1", res.Discrepancies).Return(int64(1), nil)

	p := New(&mockSource{}, testValidator(t), nil, Options{Write: noRetry()})
	pr := p.Persist(context.Background(), sink, res)

	assert.Equal(t, int64(1), pr.RecordsInserted)
	assert.Equal(t, int64(1), pr.DiscrepanciesInserted)
	assert.Empty(t, pr.Errors)
	sink.AssertExpectations(t)
}

func TestPersist_FailureDoesNotBlockOtherBatch(t *testing.T) {
	res := &Result{RunID: "run-1", Records: []model.StructuredRecord{{FileName: "a.html"}}}

	sink := &mockSink{}
	sink.On("InsertRecords", mock.Anything, "run-1", res.Records).Return(int64(0), errors.New("duplicate key"))
	sink.On("InsertDiscrepancies", mock.Anything, "run-1", []model.DiscrepancyRecord(nil)).Return(int64(0), nil)

	p := New(&mockSource{}, testValidator(t), nil, Options{Write: noRetry()})
	pr := p.Persist(context.Background(), sink, res)

	require.Len(t, pr.Errors, 1)
	assert.Contains(t, pr.Errors[0], "duplicate key")
	sink.AssertExpectations(t)
}

func TestPersist_RetriesTransientErrors(t *testing.T) {
	res := &Result{RunID: "run-1", Records: []model.StructuredRecord{{FileName: "a.html"}}}

	sink := &mockSink{}
	sink.On("InsertRecords", mock.Anything, "run-1", res.Records).
		Return(int64(0), resilience.NewTransientError(errors.New("conn reset"))).Once()
	sink.On("InsertRecords", mock.Anything, "run-1", res.Records).Return(int64(1), nil).Once()
	sink.On("InsertDiscrepancies", mock.Anything, "run-1", mock.Anything).Return(int64(0), nil)

	retry := resilience.WritePolicy{Attempts: 2, Backoff: time.Millisecond}
	p := New(&mockSource{}, testValidator(t), nil, Options{Write: retry})
	pr := p.Persist(context.Background(), sink, res)

	assert.Equal(t, int64(1), pr.RecordsInserted)
	assert.Empty(t, pr.Errors)
	sink.AssertNumberOfCalls(t, "InsertRecords", 2)
}

func TestSummarize(t *testing.T) {
	res := &Result{
		RunID: "run-1",
		Outcomes: []model.DocumentOutcome{
			{FileName: "a", Status: model.StatusValid},
			{FileName: "b", Status: model.StatusInvalid, Discrepancies: 2},
			{FileName: "c", Status: model.StatusNotFound, Error: "no table"},
			{FileName: "d", Status: model.StatusError, Error: "bad cell"},
			{FileName: "e", Status: model.StatusNotProcessed},
		},
		Discrepancies: make([]model.DiscrepancyRecord, 2),
	}

	s := Summarize(res, &PersistResult{RecordsInserted: 2, DiscrepanciesInserted: 2})
	assert.Equal(t, 5, s.Documents)
	assert.Equal(t, 1, s.Valid)
	assert.Equal(t, 1, s.Invalid)
	assert.Equal(t, 1, s.NotFound)
	assert.Equal(t, 1, s.Errored)
	assert.Equal(t, 1, s.NotProcessed)
	assert.Equal(t, 2, s.Discrepancies)
	assert.Equal(t, int64(2), s.RecordsInserted)
	require.Len(t, s.Skipped, 3)
	assert.Equal(t, "c", s.Skipped[0].FileName)

	dry := Summarize(res, nil)
	assert.Zero(t, dry.RecordsInserted)
}
