package compile

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// ensureYearSuffix stamps a plan year onto an object name so objects from
// different plan years never collide in the remote system. A name already
// carrying the target year is left alone; a name carrying a different 20xx
// year has it replaced; a name with no year at all is left unchanged
// (generic names like "Credit Amount" are reused across years).
func ensureYearSuffix(name string, year int) string {
	if strings.TrimSpace(name) == "" {
		return name
	}
	yearStr := strconv.Itoa(year)
	if strings.Contains(name, yearStr) {
		return name
	}
	if match := yearPattern.FindString(name); match != "" {
		return strings.Replace(name, match, yearStr, 1)
	}
	return name
}

// renameMap accumulates old→new name mappings so cross-references stay
// consistent after suffixing.
type renameMap map[string]string

func (m renameMap) apply(name string) string {
	if renamed, ok := m[name]; ok {
		return renamed
	}
	return name
}

func (m renameMap) rename(name string, year int) string {
	renamed := ensureYearSuffix(name, year)
	if renamed != name {
		m[name] = renamed
	}
	return renamed
}
