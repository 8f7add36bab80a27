package pipeline

import (
	"fmt"

	"gstpipeline/internal/domain"
)

// Options selects what one pipeline invocation ingests and which stages it
// runs, binding one-to-one to the driver's flags.
type Options struct {
	Channel domain.Channel
	GSTIN   string
	Month   string // "YYYY-MM"

	InputPath   string
	ReturnsPath string // pepperfry sales+returns merge
	AsinMapPath string // amazon_str ASIN→SKU map

	EnableMapping           bool
	EnableTaxInvoice        bool
	EnablePivotBatch        bool
	EnableTallyExport       bool
	EnableExpenseProcessing bool
	SellerInvoicePaths      []string
	EnableExceptionHandling bool
	EnableMISAudit          bool

	OutputDir string
	Approver  string // recorded on auto-approvals; defaults to "system_auto"
}

// EnableFullPipeline turns on every stage.
func (o *Options) EnableFullPipeline() {
	o.EnableMapping = true
	o.EnableTaxInvoice = true
	o.EnablePivotBatch = true
	o.EnableTallyExport = true
	o.EnableExpenseProcessing = true
	o.EnableExceptionHandling = true
	o.EnableMISAudit = true
}

// Validate checks the required run-scope fields.
func (o *Options) Validate() error {
	if !o.Channel.Valid() {
		return fmt.Errorf("pipeline: %w: %q", domain.ErrUnknownChannel, o.Channel)
	}
	if o.GSTIN == "" {
		return fmt.Errorf("pipeline: gstin is required")
	}
	if len(o.Month) != 7 {
		return fmt.Errorf("pipeline: month must be YYYY-MM, got %q", o.Month)
	}
	if o.InputPath == "" {
		return fmt.Errorf("pipeline: input path is required")
	}
	if o.Channel == domain.ChannelPepperfry && o.ReturnsPath == "" {
		return fmt.Errorf("pipeline: pepperfry requires a returns file")
	}
	return nil
}
