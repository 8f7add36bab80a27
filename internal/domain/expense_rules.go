package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExpenseRule maps one channel/expense-type pair to its Tally ledger and GST
// treatment, reproduced from the expense rules catalog (11 Amazon + 8
// Flipkart + 4 Pepperfry entries).
type ExpenseRule struct {
	Channel     string
	ExpenseType string
	LedgerName  string
	GSTRate     decimal.Decimal
	IsInputGST  bool
	HSNCode     string
	Description string
}

var gstEighteen = decimal.NewFromFloat(0.18)

// expenseRuleCatalog is the closed, default expense-rule catalog for the
// three supported channels.
var expenseRuleCatalog = []ExpenseRule{
	{"amazon", "Closing Fee", "Amazon Closing Fee", gstEighteen, true, "998314", "Marketplace closing fee"},
	{"amazon", "Shipping Fee", "Amazon Shipping Fee", gstEighteen, true, "996511", "Shipping and logistics fee"},
	{"amazon", "Commission", "Amazon Commission", gstEighteen, true, "998314", "Marketplace commission"},
	{"amazon", "Fulfillment Fee", "Amazon Fulfillment Fee", gstEighteen, true, "996511", "FBA fulfillment fee"},
	{"amazon", "Storage Fee", "Amazon Storage Fee", gstEighteen, true, "996419", "Warehouse storage fee"},
	{"amazon", "Advertising Fee", "Amazon Advertising Fee", gstEighteen, true, "998399", "Sponsored products advertising"},
	{"amazon", "Refund Processing Fee", "Amazon Refund Processing Fee", gstEighteen, true, "998314", "Refund processing charges"},
	{"amazon", "Return Processing Fee", "Amazon Return Processing Fee", gstEighteen, true, "998314", "Return processing charges"},
	{"amazon", "Payment Gateway Fee", "Amazon Payment Gateway Fee", gstEighteen, true, "998399", "Payment processing fee"},
	{"amazon", "Subscription Fee", "Amazon Subscription Fee", gstEighteen, true, "998399", "Seller subscription fee"},
	{"amazon", "Other Fee", "Amazon Other Charges", gstEighteen, true, "998399", "Other marketplace charges"},

	{"flipkart", "Commission", "Flipkart Commission", gstEighteen, true, "998314", "Marketplace commission"},
	{"flipkart", "Collection Fee", "Flipkart Collection Fee", gstEighteen, true, "996511", "Cash collection fee"},
	{"flipkart", "Fixed Fee", "Flipkart Fixed Fee", gstEighteen, true, "998314", "Fixed marketplace fee"},
	{"flipkart", "Shipping Fee", "Flipkart Shipping Fee", gstEighteen, true, "996511", "Shipping and logistics"},
	{"flipkart", "Payment Gateway Fee", "Flipkart Payment Gateway Fee", gstEighteen, true, "998399", "Payment processing fee"},
	{"flipkart", "Storage Fee", "Flipkart Storage Fee", gstEighteen, true, "996419", "Warehouse storage fee"},
	{"flipkart", "Advertising Fee", "Flipkart Advertising Fee", gstEighteen, true, "998399", "Sponsored listings"},
	{"flipkart", "Other Fee", "Flipkart Other Charges", gstEighteen, true, "998399", "Other marketplace charges"},

	{"pepperfry", "Commission", "Pepperfry Commission", gstEighteen, true, "998314", "Marketplace commission"},
	{"pepperfry", "Shipping Fee", "Pepperfry Shipping Fee", gstEighteen, true, "996511", "Shipping charges"},
	{"pepperfry", "Payment Gateway Fee", "Pepperfry Payment Gateway Fee", gstEighteen, true, "998399", "Payment processing"},
	{"pepperfry", "Other Fee", "Pepperfry Other Charges", gstEighteen, true, "998399", "Other charges"},
}

// expenseNormalizations maps a lowercase substring variation to its standard
// expense-type label, reproduced from the catalog's normalization table.
var expenseNormalizations = []struct {
	variation string
	standard  string
}{
	{"closing fee", "Closing Fee"},
	{"closure fee", "Closing Fee"},
	{"shipping fee", "Shipping Fee"},
	{"delivery fee", "Shipping Fee"},
	{"freight", "Shipping Fee"},
	{"commission", "Commission"},
	{"referral fee", "Commission"},
	{"fulfillment fee", "Fulfillment Fee"},
	{"fba fee", "Fulfillment Fee"},
	{"storage fee", "Storage Fee"},
	{"warehouse fee", "Storage Fee"},
	{"advertising fee", "Advertising Fee"},
	{"ads fee", "Advertising Fee"},
	{"promotion fee", "Advertising Fee"},
	{"payment gateway fee", "Payment Gateway Fee"},
	{"payment processing fee", "Payment Gateway Fee"},
	{"refund processing fee", "Refund Processing Fee"},
	{"return processing fee", "Return Processing Fee"},
}

// NormalizeExpenseType maps a free-text expense description to its standard
// label by longest-match-wins substring search, falling back to a title-cased
// copy of the input when nothing matches.
func NormalizeExpenseType(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	for _, n := range expenseNormalizations {
		if strings.Contains(lower, n.variation) {
			return n.standard
		}
	}
	return strings.Title(lower)
}

// GetExpenseRule resolves a (channel, expense_type) pair to its rule: first by
// exact case-insensitive match, then by substring overlap, then by the
// channel's "Other Fee" rule. Returns false if the channel has no rules at all.
func GetExpenseRule(channel, expenseType string) (ExpenseRule, bool) {
	channel = strings.ToLower(channel)
	expenseType = strings.ToLower(expenseType)

	for _, r := range expenseRuleCatalog {
		if strings.ToLower(r.Channel) == channel && strings.ToLower(r.ExpenseType) == expenseType {
			return r, true
		}
	}
	for _, r := range expenseRuleCatalog {
		if strings.ToLower(r.Channel) != channel {
			continue
		}
		rType := strings.ToLower(r.ExpenseType)
		if strings.Contains(rType, expenseType) || strings.Contains(expenseType, rType) {
			return r, true
		}
	}
	for _, r := range expenseRuleCatalog {
		if strings.ToLower(r.Channel) == channel && r.ExpenseType == "Other Fee" {
			return r, true
		}
	}
	return ExpenseRule{}, false
}

// ExpenseBucketFor maps a standard expense-type label to its MIS reporting
// bucket: commission, shipping, fulfillment, advertising, storage, or other.
func ExpenseBucketFor(expenseType string) string {
	lower := strings.ToLower(strings.TrimSpace(expenseType))
	switch {
	case strings.Contains(lower, "commission"):
		return "commission"
	case strings.Contains(lower, "shipping"):
		return "shipping"
	case strings.Contains(lower, "fulfillment"):
		return "fulfillment"
	case strings.Contains(lower, "advertising"):
		return "advertising"
	case strings.Contains(lower, "storage"):
		return "storage"
	default:
		return "other"
	}
}

// AllExpenseRulesForChannel returns every rule registered for channel.
func AllExpenseRulesForChannel(channel string) []ExpenseRule {
	var out []ExpenseRule
	for _, r := range expenseRuleCatalog {
		if strings.EqualFold(r.Channel, channel) {
			out = append(out, r)
		}
	}
	return out
}
