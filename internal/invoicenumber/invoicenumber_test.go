package invoicenumber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
)

func TestGenerateChannelFormats(t *testing.T) {
	tests := []struct {
		channel domain.Channel
		state   string
		want    string
	}{
		{domain.ChannelAmazonMTR, "AP", "AMZ-AP-08-0001"},
		{domain.ChannelAmazonSTR, "KA", "AMZST-KA-08-0001"},
		{domain.ChannelFlipkart, "DL", "FLIP-DL-08-0001"},
		{domain.ChannelPepperfry, "MH", "PEPP-MH-08-0001"},
	}
	for _, tt := range tests {
		t.Run(string(tt.channel), func(t *testing.T) {
			e := NewEngine(tt.channel, nil)
			got, err := e.Generate(tt.state, "2025-08", 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSkipsUsedNumbers(t *testing.T) {
	e := NewEngine(domain.ChannelAmazonMTR, []string{"AMZ-HR-08-0001", "AMZ-HR-08-0002"})
	got, err := e.Generate("HR", "2025-08", 1)
	require.NoError(t, err)
	assert.Equal(t, "AMZ-HR-08-0003", got, "candidate increments past preloaded numbers")
}

func TestGenerateNeverRepeats(t *testing.T) {
	e := NewEngine(domain.ChannelFlipkart, nil)
	seen := make(map[string]bool)
	for i := 1; i <= 50; i++ {
		num, err := e.Generate("DL", "2025-08", 1)
		require.NoError(t, err)
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
}

func TestGenerateBatchDeterministicOrder(t *testing.T) {
	rows := []RowRef{
		{Index: 0, StateCode: "KA"},
		{Index: 1, StateCode: "HR"},
		{Index: 2, StateCode: "KA"},
		{Index: 3, StateCode: "HR"},
	}
	e := NewEngine(domain.ChannelAmazonMTR, nil)
	assigned, err := e.GenerateBatch(rows, "2025-08")
	require.NoError(t, err)

	// States are processed ascending, input order preserved within a state.
	assert.Equal(t, "AMZ-HR-08-0001", assigned[1])
	assert.Equal(t, "AMZ-HR-08-0002", assigned[3])
	assert.Equal(t, "AMZ-KA-08-0001", assigned[0])
	assert.Equal(t, "AMZ-KA-08-0002", assigned[2])
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate(domain.ChannelAmazonMTR, "AMZ-HR-08-0001"))
	assert.True(t, Validate(domain.ChannelAmazonSTR, "AMZST-KA-08-0042"))
	assert.False(t, Validate(domain.ChannelAmazonMTR, "FLIP-HR-08-0001"), "wrong prefix")
	assert.False(t, Validate(domain.ChannelAmazonMTR, "AMZ-HARYANA-08-0001"), "state must be two letters")
	assert.False(t, Validate(domain.ChannelAmazonMTR, "amz-hr-08-0001"), "lower case rejected")
}

func TestParseRoundTrip(t *testing.T) {
	e := NewEngine(domain.ChannelPepperfry, nil)
	num, err := e.Generate("MH", "2025-08", 7)
	require.NoError(t, err)

	parsed, err := Parse(domain.ChannelPepperfry, num)
	require.NoError(t, err)
	assert.Equal(t, "PEPP", parsed.Prefix)
	assert.Equal(t, "MH", parsed.StateCode)
	assert.Equal(t, "08", parsed.MonthCode)
	assert.Equal(t, "0007", parsed.Sequence)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse(domain.ChannelAmazonMTR, "AMZHR202508001")
	assert.Error(t, err)
}

func TestNextSequence(t *testing.T) {
	e := NewEngine(domain.ChannelAmazonMTR, []string{
		"AMZ-HR-08-0001", "AMZ-HR-08-0005", "AMZ-KA-08-0009",
	})
	assert.Equal(t, 6, e.NextSequence("HR", "2025-08"))
	assert.Equal(t, 10, e.NextSequence("KA", "2025-08"))
	assert.Equal(t, 1, e.NextSequence("DL", "2025-08"))
}
