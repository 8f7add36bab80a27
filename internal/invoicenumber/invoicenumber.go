// Package invoicenumber assigns deterministic, globally-unique invoice
// numbers per channel from a fixed pattern table, with a uniqueness loop
// over the preloaded registry.
package invoicenumber

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gstpipeline/internal/domain"
)

// Pattern describes one channel's invoice-number shape.
type Pattern struct {
	Prefix    string
	StateCode bool
	MonthCode bool
	Separator string
}

// patterns is the closed, channel-specific numbering pattern table.
var patterns = map[domain.Channel]Pattern{
	domain.ChannelAmazonMTR: {Prefix: "AMZ", StateCode: true, MonthCode: true, Separator: "-"},
	domain.ChannelAmazonSTR: {Prefix: "AMZST", StateCode: true, MonthCode: true, Separator: "-"},
	domain.ChannelFlipkart:  {Prefix: "FLIP", StateCode: true, MonthCode: true, Separator: "-"},
	domain.ChannelPepperfry: {Prefix: "PEPP", StateCode: true, MonthCode: true, Separator: "-"},
}

// PatternFor returns the numbering pattern for channel.
func PatternFor(channel domain.Channel) (Pattern, bool) {
	p, ok := patterns[channel]
	return p, ok
}

// monthCode extracts the two-digit month code from a "YYYY-MM" string.
func monthCode(month string) string {
	if idx := strings.Index(month, "-"); idx >= 0 && idx+1 < len(month) {
		return month[idx+1:]
	}
	if len(month) >= 2 {
		return month[len(month)-2:]
	}
	return "01"
}

// Engine assigns invoice numbers for a single run, preloaded with every
// number already registered for (channel, gstin, month) to guarantee
// global uniqueness within InvoiceRegistry.
type Engine struct {
	channel domain.Channel
	used    map[string]struct{}
}

// NewEngine creates an Engine preloaded with existing numbers.
func NewEngine(channel domain.Channel, existing []string) *Engine {
	used := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		used[n] = struct{}{}
	}
	return &Engine{channel: channel, used: used}
}

// Generate builds PREFIX-STATE-MONTH-SEQ for the given state/month/sequence,
// incrementing the sequence until the candidate is not already in the
// registry, and records the final candidate as used.
func (e *Engine) Generate(stateCode, month string, sequence int) (string, error) {
	pattern, ok := patterns[e.channel]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownChannel, e.channel)
	}

	parts := []string{pattern.Prefix}
	if pattern.StateCode {
		parts = append(parts, stateCode)
	}
	if pattern.MonthCode {
		parts = append(parts, monthCode(month))
	}
	parts = append(parts, fmt.Sprintf("%04d", sequence))

	candidate := strings.Join(parts, pattern.Separator)
	for {
		if _, exists := e.used[candidate]; !exists {
			break
		}
		sequence++
		parts[len(parts)-1] = fmt.Sprintf("%04d", sequence)
		candidate = strings.Join(parts, pattern.Separator)
	}
	e.used[candidate] = struct{}{}
	return candidate, nil
}

// RowRef is the minimal shape GenerateBatch needs from a pending row.
type RowRef struct {
	Index     int
	StateCode string
}

// GenerateBatch partitions rows by state_code (deterministic, state_code
// ascending, then input order) and assigns seq=1..N per partition,
// returning a map from row index to assigned invoice number.
func (e *Engine) GenerateBatch(rows []RowRef, month string) (map[int]string, error) {
	groups := make(map[string][]RowRef)
	var states []string
	for _, r := range rows {
		if _, seen := groups[r.StateCode]; !seen {
			states = append(states, r.StateCode)
		}
		groups[r.StateCode] = append(groups[r.StateCode], r)
	}
	sort.Strings(states)

	out := make(map[int]string, len(rows))
	for _, state := range states {
		group := groups[state]
		for i, r := range group {
			num, err := e.Generate(state, month, i+1)
			if err != nil {
				return nil, err
			}
			out[r.Index] = num
		}
	}
	return out, nil
}

// formatRegexes builds a validation regex per pattern: prefix, optional
// 2-letter state, optional 2-digit month, optional 4-digit sequence.
var formatRegexes = func() map[domain.Channel]*regexp.Regexp {
	out := make(map[domain.Channel]*regexp.Regexp, len(patterns))
	for ch, p := range patterns {
		parts := []string{regexp.QuoteMeta(p.Prefix)}
		if p.StateCode {
			parts = append(parts, `[A-Z]{2}`)
		}
		if p.MonthCode {
			parts = append(parts, `\d{2}`)
		}
		parts = append(parts, `(?:\d{4})?`)
		pattern := "^" + strings.Join(parts, regexp.QuoteMeta(p.Separator)) + "$"
		out[ch] = regexp.MustCompile(pattern)
	}
	return out
}()

// Validate reports whether invoiceNo matches channel's expected format.
func Validate(channel domain.Channel, invoiceNo string) bool {
	re, ok := formatRegexes[channel]
	if !ok {
		return false
	}
	return re.MatchString(invoiceNo)
}

// ParsedInvoiceNumber is the decomposed form of a channel invoice number.
type ParsedInvoiceNumber struct {
	Prefix    string
	StateCode string
	MonthCode string
	Sequence  string
}

// Parse decomposes invoiceNo into its constituent parts per channel's pattern.
func Parse(channel domain.Channel, invoiceNo string) (ParsedInvoiceNumber, error) {
	if !Validate(channel, invoiceNo) {
		return ParsedInvoiceNumber{}, fmt.Errorf("invalid invoice number format: %s", invoiceNo)
	}
	pattern := patterns[channel]
	parts := strings.Split(invoiceNo, pattern.Separator)

	result := ParsedInvoiceNumber{Prefix: parts[0]}
	idx := 1
	if pattern.StateCode && idx < len(parts) {
		result.StateCode = parts[idx]
		idx++
	}
	if pattern.MonthCode && idx < len(parts) {
		result.MonthCode = parts[idx]
		idx++
	}
	if idx < len(parts) {
		result.Sequence = parts[idx]
	}
	return result, nil
}

// NextSequence scans already-generated numbers sharing channel/state/month's
// prefix and returns one past the highest sequence found.
func (e *Engine) NextSequence(stateCode, month string) int {
	pattern := patterns[e.channel]
	prefix := strings.Join([]string{pattern.Prefix, stateCode, monthCode(month)}, pattern.Separator)

	maxSeq := 0
	for number := range e.used {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		segments := strings.Split(number, pattern.Separator)
		seq, err := strconv.Atoi(segments[len(segments)-1])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}
