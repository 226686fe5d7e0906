package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/docval/internal/pipeline"
)

// Sheet names in the run workbook.
const (
	DiscrepanciesSheet = "Discrepancies"
	DocumentsSheet     = "Documents"
)

var (
	discrepancyColumns = []string{"Run ID", "File", "Document ID", "Location", "Type", "Description"}
	documentColumns    = []string{"File", "Document ID", "Status", "Discrepancies", "Error"}
)

// WriteXLSX saves a workbook with one row per discrepancy and one row per
// input document.
func WriteXLSX(path string, res *pipeline.Result) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(DiscrepanciesSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add discrepancies sheet")
	}
	addStringRow(sheet, discrepancyColumns)
	for _, d := range res.Discrepancies {
		addStringRow(sheet, []string{
			res.RunID,
			d.FileName,
			d.DocumentID,
			string(d.Location),
			string(d.Type),
			d.Description,
		})
	}

	sheet, err = f.AddSheet(DocumentsSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add documents sheet")
	}
	addStringRow(sheet, documentColumns)
	for _, o := range res.Outcomes {
		row := sheet.AddRow()
		row.AddCell().SetString(o.FileName)
		row.AddCell().SetString(o.DocumentID)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetInt(o.Discrepancies)
		row.AddCell().SetString(o.Error)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// ReadSheet returns every row of the named sheet as strings.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
