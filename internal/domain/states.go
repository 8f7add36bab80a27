package domain

import "strings"

// StateNameToCode maps an Indian state/union-territory name (upper-cased) to
// its two-letter abbreviation, reproduced verbatim from the numbering
// engine's STATE_MAPPINGS table.
var StateNameToCode = map[string]string{
	"ANDHRA PRADESH": "AP", "ARUNACHAL PRADESH": "AR", "ASSAM": "AS",
	"BIHAR": "BR", "CHHATTISGARH": "CG", "GOA": "GA", "GUJARAT": "GJ",
	"HARYANA": "HR", "HIMACHAL PRADESH": "HP", "JHARKHAND": "JH",
	"KARNATAKA": "KA", "KERALA": "KL", "MADHYA PRADESH": "MP",
	"MAHARASHTRA": "MH", "MANIPUR": "MN", "MEGHALAYA": "ML",
	"MIZORAM": "MZ", "NAGALAND": "NL", "DELHI": "DL", "ODISHA": "OR",
	"PUNJAB": "PB", "RAJASTHAN": "RJ", "SIKKIM": "SK", "TAMIL NADU": "TN",
	"TELANGANA": "TG", "TRIPURA": "TR", "UTTAR PRADESH": "UP",
	"UTTARAKHAND": "UK", "WEST BENGAL": "WB", "JAMMU & KASHMIR": "JK",
	"LADAKH": "LA", "CHANDIGARH": "CH", "DADRA & NAGAR HAVELI": "DN",
	"DAMAN & DIU": "DD", "LAKSHADWEEP": "LD", "PUDUCHERRY": "PY",
}

// GSTINStateCode maps the two-digit GSTIN state prefix to its state
// abbreviation, reproduced verbatim from the numbering engine's
// GSTIN_STATE_CODES table.
var GSTINStateCode = map[string]string{
	"01": "JK", "02": "HP", "03": "PB", "04": "CH", "05": "UK",
	"06": "HR", "07": "DL", "08": "RJ", "09": "UP", "10": "BR",
	"11": "SK", "12": "AR", "13": "NL", "14": "MN", "15": "MZ",
	"16": "TR", "17": "ML", "18": "AS", "19": "WB", "20": "JH",
	"21": "OR", "22": "CG", "23": "MP", "24": "GJ", "25": "DD",
	"26": "DN", "27": "MH", "28": "AP", "29": "KA", "30": "GA",
	"31": "LD", "32": "KL", "33": "TN", "34": "PY", "35": "AN",
	"36": "TG", "37": "LA",
}

// StateCodeFromName resolves a state/union-territory name to its two-letter
// abbreviation. The name is matched case-insensitively. Returns ("UN", false)
// when unrecognized.
func StateCodeFromName(stateName string) (string, bool) {
	code, ok := StateNameToCode[strings.ToUpper(strings.TrimSpace(stateName))]
	if !ok {
		return "UN", false
	}
	return code, true
}

// StateCodeFromGSTIN extracts the two-letter state abbreviation from the
// first two digits of a GSTIN. Returns ("99", false) if gstin is too short to
// carry a state prefix, or ("UN", false) if the prefix is not recognized.
func StateCodeFromGSTIN(gstin string) (string, bool) {
	if len(gstin) < 2 {
		return "99", false
	}
	code, ok := GSTINStateCode[gstin[:2]]
	if !ok {
		return "UN", false
	}
	return code, true
}
