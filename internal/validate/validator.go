// Package validate applies business rules to extracted table records.
//
// Each rule is a pure check over a StructuredRecord returning at most one
// discrepancy, so a Validator holds only its configured bounds and may be
// shared freely between goroutines.
package validate

import (
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docval/internal/model"
)

const (
	// CreationDateLayout is the record date format, e.g. 05Jan2024.
	CreationDateLayout = "2Jan2006"
	// BoundDateLayout is the format of externally supplied date bounds.
	BoundDateLayout = "2006-01-02"
)

// Rules holds the validation bounds.
type Rules struct {
	MinTitleLength  int
	MaxCreationDate time.Time
	MaxRowSum       int
}

var errNotInteger = eris.New("not a base-10 integer")

// CellError reports a non-integer cell in the first body row.
type CellError struct {
	Column int
	Value  string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("validate: first body row column %d: %q is not an integer", e.Column, e.Value)
}

func (e *CellError) Unwrap() error { return e.Err }

// Check inspects one aspect of a record. It returns nil when the record
// passes, or an error when the record cannot be evaluated at all.
type Check func(r Rules, rec model.StructuredRecord) (*model.Discrepancy, error)

// Checks lists the rules in the order their discrepancies are reported.
var Checks = []Check{
	CheckTitle,
	CheckCreationDate,
	CheckBody,
}

// Validator evaluates records against a fixed set of Rules.
type Validator struct {
	rules Rules
}

// New returns a Validator for the given rules.
func New(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Rules returns the configured bounds.
func (v *Validator) Rules() Rules { return v.rules }

// Validate runs every check. All checks run even when an earlier one fails.
// An error means the record could not be evaluated; discrepancies are never
// reported as errors.
func (v *Validator) Validate(rec model.StructuredRecord) (model.ValidationResult, error) {
	res := model.ValidationResult{
		Status:        model.StatusValid,
		Discrepancies: []model.Discrepancy{},
	}

	for _, check := range Checks {
		d, err := check(v.rules, rec)
		if err != nil {
			return model.ValidationResult{}, err
		}
		if d != nil {
			res.Discrepancies = append(res.Discrepancies, *d)
		}
	}

	if len(res.Discrepancies) > 0 {
		res.Status = model.StatusInvalid
	}
	return res, nil
}

// CheckTitle requires a title of at least MinTitleLength characters.
func CheckTitle(r Rules, rec model.StructuredRecord) (*model.Discrepancy, error) {
	if rec.Title == "" {
		return missing(model.LocationTitle), nil
	}
	if utf8.RuneCountInString(rec.Title) < r.MinTitleLength {
		return invalid(model.LocationTitle,
			fmt.Sprintf("title length is shorter than: %d", r.MinTitleLength)), nil
	}
	return nil, nil
}

// CheckCreationDate requires a DDMonYYYY creation date no later than MaxCreationDate.
func CheckCreationDate(r Rules, rec model.StructuredRecord) (*model.Discrepancy, error) {
	if rec.DateOfCreation == "" {
		return missing(model.LocationCreationDate), nil
	}

	created, err := ParseCreationDate(rec.DateOfCreation)
	if err != nil {
		return invalid(model.LocationCreationDate, "creation date is not in the correct format"), nil
	}

	if created.After(r.MaxCreationDate) {
		return invalid(model.LocationCreationDate,
			fmt.Sprintf("creation date is later than: %s", r.MaxCreationDate.Format(BoundDateLayout))), nil
	}
	return nil, nil
}

// CheckBody requires a body whose first row, label cell excluded, sums to at
// most MaxRowSum.
func CheckBody(r Rules, rec model.StructuredRecord) (*model.Discrepancy, error) {
	if len(rec.Body) == 0 {
		return missing(model.LocationBody), nil
	}

	sum, err := FirstRowSum(rec.Body)
	if err != nil {
		return nil, err
	}
	if sum.Cmp(big.NewInt(int64(r.MaxRowSum))) > 0 {
		return invalid(model.LocationBody,
			fmt.Sprintf("sum of first row is greater than: %d", r.MaxRowSum)), nil
	}
	return nil, nil
}

// FirstRowSum adds the integer cells of the first body row, skipping the
// leading row label. Cells may be arbitrarily large; the sum never wraps.
func FirstRowSum(body [][]string) (*big.Int, error) {
	sum := new(big.Int)
	if len(body) == 0 || len(body[0]) < 2 {
		return sum, nil
	}

	n := new(big.Int)
	for i, cell := range body[0][1:] {
		if _, ok := n.SetString(strings.TrimSpace(cell), 10); !ok {
			return nil, &CellError{Column: i + 1, Value: cell, Err: errNotInteger}
		}
		sum.Add(sum, n)
	}
	return sum, nil
}

// ParseCreationDate parses a DDMonYYYY date such as 5Jan2024 or 05Jan2024.
func ParseCreationDate(s string) (time.Time, error) {
	t, err := time.Parse(CreationDateLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "validate: parse creation date %q", s)
	}
	return t, nil
}

// ParseBoundDate parses a YYYY-MM-DD bound date.
func ParseBoundDate(s string) (time.Time, error) {
	t, err := time.Parse(BoundDateLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "validate: parse bound date %q", s)
	}
	return t, nil
}

func missing(loc model.DiscrepancyLocation) *model.Discrepancy {
	return &model.Discrepancy{Type: model.DiscrepancyMissing, Location: loc}
}

func invalid(loc model.DiscrepancyLocation, desc string) *model.Discrepancy {
	return &model.Discrepancy{Type: model.DiscrepancyInvalidValue, Location: loc, Description: desc}
}
