// Package schemavalidator checks normalized datasets for required columns.
package schemavalidator

import (
	"fmt"
	"sort"
)

// mandatoryFields are always checked regardless of the caller-supplied
// required set.
var mandatoryFields = []string{"invoice_date", "gst_rate", "state_code"}

// Result is the validation outcome: success plus the full list of problems
// found. Validation never fails fast.
type Result struct {
	Success bool
	Errors  []string
}

// Validate checks that requiredFields (plus the always-on triplet) appear in
// the set of columns the source actually carried. Presence is column
// membership, not value inspection: a column full of zeroes is still present
// (0 is a legitimate GST rate), while a column the source never had is
// missing even if every row holds a defaulted value.
func Validate(columns map[string]bool, requiredFields []string) Result {
	fields := make(map[string]bool)
	for _, f := range requiredFields {
		fields[f] = true
	}
	for _, f := range mandatoryFields {
		fields[f] = true
	}

	var missing []string
	for field := range fields {
		if !columns[field] {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)

	var errs []string
	for _, field := range missing {
		errs = append(errs, fmt.Sprintf("missing required field: %s", field))
	}

	return Result{Success: len(errs) == 0, Errors: errs}
}
