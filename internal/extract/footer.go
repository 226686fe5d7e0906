package extract

import (
	"regexp"
	"strings"
)

var creationRe = regexp.MustCompile(`Creation:\s*(\d{1,2}[a-zA-Z]{3}\d{4})\s*(.+)`)

// SplitFooter pulls the creation date token and country out of a footer such
// as "Creation: 5Jan2024 Germany". Both are empty when the footer does not match.
func SplitFooter(footer string) (date, country string) {
	if footer == "" {
		return "", ""
	}
	m := creationRe.FindStringSubmatch(footer)
	if m == nil {
		return "", ""
	}
	country = strings.TrimSpace(m[2])
	if country == "" {
		return "", ""
	}
	return m[1], country
}
