package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gstpipeline/internal/domain"
)

func validOptions() Options {
	return Options{
		Channel:   domain.ChannelAmazonMTR,
		GSTIN:     "06ABGCS4796R1ZA",
		Month:     "2025-08",
		InputPath: "/tmp/input.csv",
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := validOptions()
	assert.NoError(t, opts.Validate())
}

func TestOptionsValidateRejectsBadChannel(t *testing.T) {
	opts := validOptions()
	opts.Channel = "ebay"
	assert.ErrorIs(t, opts.Validate(), domain.ErrUnknownChannel)
}

func TestOptionsValidateRejectsBadMonth(t *testing.T) {
	opts := validOptions()
	opts.Month = "Aug 2025"
	assert.Error(t, opts.Validate())
}

func TestOptionsValidatePepperfryNeedsReturns(t *testing.T) {
	opts := validOptions()
	opts.Channel = domain.ChannelPepperfry
	assert.Error(t, opts.Validate())

	opts.ReturnsPath = "/tmp/returns.csv"
	assert.NoError(t, opts.Validate())
}

func TestEnableFullPipeline(t *testing.T) {
	opts := validOptions()
	opts.EnableFullPipeline()
	assert.True(t, opts.EnableMapping)
	assert.True(t, opts.EnableTaxInvoice)
	assert.True(t, opts.EnablePivotBatch)
	assert.True(t, opts.EnableTallyExport)
	assert.True(t, opts.EnableExpenseProcessing)
	assert.True(t, opts.EnableExceptionHandling)
	assert.True(t, opts.EnableMISAudit)
}
