package model

import "time"

// ValidationStatus is the outcome of processing one document.
type ValidationStatus string

const (
	StatusValid        ValidationStatus = "VALID"
	StatusInvalid      ValidationStatus = "INVALID"
	StatusError        ValidationStatus = "ERROR"
	StatusNotFound     ValidationStatus = "NOT_FOUND"
	StatusNotProcessed ValidationStatus = "NOT_PROCESSED"
)

// DiscrepancyType classifies a validation finding.
type DiscrepancyType string

const (
	DiscrepancyMissing      DiscrepancyType = "MISSING"
	DiscrepancyInvalidValue DiscrepancyType = "INVALID_VALUE"
)

// DiscrepancyLocation names the record part a finding refers to.
type DiscrepancyLocation string

const (
	LocationTitle        DiscrepancyLocation = "TITLE"
	LocationBody         DiscrepancyLocation = "BODY"
	LocationCreationDate DiscrepancyLocation = "CREATION_DATE"
)

// Discrepancy is a single validation finding.
type Discrepancy struct {
	Type        DiscrepancyType     `json:"type"`
	Location    DiscrepancyLocation `json:"location"`
	Description string              `json:"description,omitempty"`
}

// ValidationResult is the output of validating one record.
type ValidationResult struct {
	Status        ValidationStatus `json:"status"`
	Discrepancies []Discrepancy    `json:"discrepancies"`
}

// DiscrepancyRecord is a Discrepancy tagged with the identity of the document
// it was found in. This is the persisted shape.
type DiscrepancyRecord struct {
	ID         string `json:"id,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	FileName   string `json:"file_name"`
	Discrepancy
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewDiscrepancyRecords attaches document identity to each discrepancy.
func NewDiscrepancyRecords(rec StructuredRecord, discs []Discrepancy) []DiscrepancyRecord {
	if len(discs) == 0 {
		return nil
	}
	out := make([]DiscrepancyRecord, len(discs))
	for i, d := range discs {
		out[i] = DiscrepancyRecord{
			DocumentID:  rec.DocumentID,
			FileName:    rec.FileName,
			Discrepancy: d,
		}
	}
	return out
}

// DocumentOutcome summarizes what happened to one input document in a run.
type DocumentOutcome struct {
	FileName      string           `json:"file_name" yaml:"file_name"`
	DocumentID    string           `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	Status        ValidationStatus `json:"status" yaml:"status"`
	Discrepancies int              `json:"discrepancies" yaml:"discrepancies"`
	Error         string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Skipped reports whether the document produced no record.
func (o DocumentOutcome) Skipped() bool {
	switch o.Status {
	case StatusValid, StatusInvalid:
		return false
	default:
		return true
	}
}
