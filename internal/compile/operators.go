package compile

import "strings"

// operatorSynonyms maps textual operator spellings from upstream analyses to
// the canonical symbols the remote formula engine accepts.
var operatorSynonyms = map[string]string{
	"multiply":    "*",
	"multiplied":  "*",
	"times":       "*",
	"x":           "*",
	"divide":      "/",
	"divided":     "/",
	"divided by":  "/",
	"over":        "/",
	"plus":        "+",
	"add":         "+",
	"added":       "+",
	"minus":       "-",
	"subtract":    "-",
	"less":        "-",
	"open paren":  "(",
	"close paren": ")",
}

// canonicalOperators is the set the remote system accepts verbatim.
var canonicalOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	"(": true, ")": true, ",": true,
}

// NormalizeOperator maps operator synonyms to canonical symbols. Unknown
// operators pass through unchanged; ok reports whether the result is one of
// the canonical symbols.
func NormalizeOperator(op string) (normalized string, ok bool) {
	trimmed := strings.TrimSpace(op)
	if canonicalOperators[trimmed] {
		return trimmed, true
	}
	if sym, found := operatorSynonyms[strings.ToLower(trimmed)]; found {
		return sym, true
	}
	return trimmed, false
}
