package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ValidationStatus
		want   string
	}{
		{StatusValid, "VALID"},
		{StatusInvalid, "INVALID"},
		{StatusError, "ERROR"},
		{StatusNotFound, "NOT_FOUND"},
		{StatusNotProcessed, "NOT_PROCESSED"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestNewDiscrepancyRecords(t *testing.T) {
	rec := StructuredRecord{DocumentID: "t-1", FileName: "0_table.html"}
	discs := []Discrepancy{
		{Type: DiscrepancyMissing, Location: LocationTitle},
		{Type: DiscrepancyInvalidValue, Location: LocationBody, Description: "sum of first row is greater than: 5"},
	}

	got := NewDiscrepancyRecords(rec, discs)
	assert.Len(t, got, 2)
	assert.Equal(t, "t-1", got[0].DocumentID)
	assert.Equal(t, "0_table.html", got[1].FileName)
	assert.Equal(t, LocationBody, got[1].Location)
	assert.Equal(t, "sum of first row is greater than: 5", got[1].Description)
}

func TestNewDiscrepancyRecords_Empty(t *testing.T) {
	assert.Nil(t, NewDiscrepancyRecords(StructuredRecord{FileName: "a.html"}, nil))
}

func TestDocumentOutcome_Skipped(t *testing.T) {
	assert.False(t, DocumentOutcome{Status: StatusValid}.Skipped())
	assert.False(t, DocumentOutcome{Status: StatusInvalid}.Skipped())
	assert.True(t, DocumentOutcome{Status: StatusNotFound}.Skipped())
	assert.True(t, DocumentOutcome{Status: StatusError}.Skipped())
	assert.True(t, DocumentOutcome{Status: StatusNotProcessed}.Skipped())
}

func TestStructuredRecord_HasCreationInfo(t *testing.T) {
	assert.True(t, StructuredRecord{DateOfCreation: "5Jan2024", CountryOfCreation: "Germany"}.HasCreationInfo())
	assert.False(t, StructuredRecord{}.HasCreationInfo())
}
