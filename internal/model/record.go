package model

import "time"

// StructuredRecord is the parsed representation of one HTML table document.
// Empty strings mean the field was absent in the source.
type StructuredRecord struct {
	DocumentID        string     `json:"document_id,omitempty"`
	FileName          string     `json:"file_name"`
	Title             string     `json:"title,omitempty"`
	Header            []string   `json:"header,omitempty"`
	Body              [][]string `json:"body"`
	Footer            string     `json:"footer,omitempty"`
	CountryOfCreation string     `json:"country_of_creation,omitempty"`
	DateOfCreation    string     `json:"date_of_creation,omitempty"`
}

// HasCreationInfo reports whether the footer yielded a creation date and country.
func (r StructuredRecord) HasCreationInfo() bool {
	return r.DateOfCreation != "" && r.CountryOfCreation != ""
}

// StoredRecord is a StructuredRecord as persisted by a run.
type StoredRecord struct {
	ID    string `json:"id"`
	RunID string `json:"run_id"`
	StructuredRecord
	CreatedAt time.Time `json:"created_at"`
}
