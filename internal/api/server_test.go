package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docval/internal/model"
	"github.com/sells-group/docval/internal/store"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) FindRecords(ctx context.Context, f store.Filter) ([]model.StoredRecord, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredRecord), args.Error(1)
}

func (m *mockReader) FindDiscrepancies(ctx context.Context, f store.Filter) ([]model.DiscrepancyRecord, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscrepancyRecord), args.Error(1)
}

func (m *mockReader) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func do(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := &mockReader{}
	r.On("Ping", mock.Anything).Return(nil).Once()
	r.On("Ping", mock.Anything).Return(errors.New("db down")).Once()
	s := NewServer(r, nil)

	rec := do(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecords_PassesFilter(t *testing.T) {
	want := store.Filter{RunID: "run-1", FileName: "a.html", DocumentID: "doc-1", Limit: 5}
	r := &mockReader{}
	r.On("FindRecords", mock.Anything, want).Return([]model.StoredRecord{
		{ID: "1", RunID: "run-1", StructuredRecord: model.StructuredRecord{FileName: "a.html", DocumentID: "doc-1", Title: "Annual"}},
	}, nil)

	rec := do(t, NewServer(r, nil), "/api/records?run_id=run-1&file_name=a.html&document_id=doc-1&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []model.StoredRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Annual", got[0].Title)
	r.AssertExpectations(t)
}

func TestRecords_EmptyIsArray(t *testing.T) {
	r := &mockReader{}
	r.On("FindRecords", mock.Anything, store.Filter{}).Return(nil, nil)

	rec := do(t, NewServer(r, nil), "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecords_BadLimit(t *testing.T) {
	s := NewServer(&mockReader{}, nil)

	for _, limit := range []string{"abc", "0", "-3", "1001"} {
		rec := do(t, s, "/api/records?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		assert.Contains(t, rec.Body.String(), "limit must be")
	}
}

func TestRecords_StoreErrorHidden(t *testing.T) {
	r := &mockReader{}
	r.On("FindRecords", mock.Anything, mock.Anything).Return(nil, errors.New("relation does not exist"))

	rec := do(t, NewServer(r, nil), "/api/records")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestDiscrepancies(t *testing.T) {
	r := &mockReader{}
	r.On("FindDiscrepancies", mock.Anything, store.Filter{RunID: "run-1"}).Return([]model.DiscrepancyRecord{
		{FileName: "b.html", Discrepancy: model.Discrepancy{Type: model.DiscrepancyMissing, Location: model.LocationBody}},
	}, nil)

	rec := do(t, NewServer(r, nil), "/api/discrepancies?run_id=run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"location":"BODY"`)
	assert.Contains(t, rec.Body.String(), `"type":"MISSING"`)
}

func TestDocumentDiscrepancies(t *testing.T) {
	r := &mockReader{}
	r.On("FindDiscrepancies", mock.Anything, store.Filter{DocumentID: "doc-9", Limit: 10}).Return(nil, nil)

	rec := do(t, NewServer(r, nil), "/api/documents/doc-9/discrepancies?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	r.AssertExpectations(t)
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(&mockReader{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
