package schemavalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullColumns() map[string]bool {
	return map[string]bool{
		"invoice_date": true, "gst_rate": true, "state_code": true,
		"order_id": true, "sku": true, "quantity": true,
		"taxable_value": true, "channel": true, "gstin": true, "month": true,
	}
}

func TestValidateSucceedsWithMandatoryTriplet(t *testing.T) {
	res := Validate(fullColumns(), nil)
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	res := Validate(map[string]bool{}, nil)
	assert.False(t, res.Success)
	assert.Equal(t, []string{
		"missing required field: gst_rate",
		"missing required field: invoice_date",
		"missing required field: state_code",
	}, res.Errors, "full sorted list, not just the first")
}

func TestValidateCallerSuppliedFields(t *testing.T) {
	columns := fullColumns()
	delete(columns, "sku")
	res := Validate(columns, []string{"sku"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, "missing required field: sku")
}

func TestValidatePresenceIsColumnMembershipNotValues(t *testing.T) {
	// A gst_rate column that exists but holds only zeroes is still present;
	// the validator must not reject a dataset of legitimately zero-rated rows.
	columns := map[string]bool{
		"invoice_date": true, "gst_rate": true, "state_code": true,
	}
	res := Validate(columns, nil)
	assert.True(t, res.Success)
}

func TestValidateNilColumns(t *testing.T) {
	res := Validate(nil, nil)
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 3)
}
