// Package report writes end-of-run reports: a YAML summary and an XLSX
// workbook of discrepancies and document outcomes.
package report

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/docval/internal/pipeline"
)

// WriteSummary encodes s as YAML.
func WriteSummary(w io.Writer, s pipeline.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return eris.Wrap(err, "report: encode summary")
	}
	return eris.Wrap(enc.Close(), "report: flush summary")
}

// WriteSummaryFile writes the YAML summary to path, or to stdout when path is "-".
func WriteSummaryFile(path string, s pipeline.Summary) error {
	if path == "-" {
		return WriteSummary(os.Stdout, s)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := WriteSummary(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "report: close %s", path)
}

// ReadSummaryFile loads a summary written by WriteSummaryFile.
func ReadSummaryFile(path string) (pipeline.Summary, error) {
	var s pipeline.Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, eris.Wrapf(err, "report: read %s", path)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, eris.Wrapf(err, "report: parse %s", path)
	}
	return s, nil
}
