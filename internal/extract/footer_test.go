package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFooter(t *testing.T) {
	tests := []struct {
		name        string
		footer      string
		wantDate    string
		wantCountry string
	}{
		{"standard", "Creation: 5Jan2024 Germany", "5Jan2024", "Germany"},
		{"two digit day", "Creation: 05Jan2024 United Kingdom", "05Jan2024", "United Kingdom"},
		{"no whitespace", "Creation:12Mar2023France", "12Mar2023", "France"},
		{"leading text ignored", "Printed copy. Creation: 1Feb2022 Spain", "1Feb2022", "Spain"},
		{"no match", "no match here", "", ""},
		{"empty", "", "", ""},
		{"missing country", "Creation: 5Jan2024", "", ""},
		{"iso date does not match", "Creation: 2024-01-05 Germany", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, country := SplitFooter(tt.footer)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantCountry, country)
		})
	}
}
