// Package safety gates model-generated SQL before it may touch a local
// database. Only read-only SELECT statements pass; anything carrying a
// mutating keyword is rejected.
package safety

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"datalens/internal/common"
)

// ErrBlocked marks a query rejected by the validator, as opposed to a query
// that failed during execution. API handlers branch on it to render the
// "blocked for safety" message.
var ErrBlocked = errors.New("query blocked for safety")

// blockedKeywords are the mutating statements a generated query must never
// contain, matched as whole words case-insensitively.
var blockedKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE"}

// Validate accepts a candidate SQL statement only if its leading keyword is
// SELECT and no blocked keyword appears anywhere in the statement body.
func Validate(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%w: empty query", ErrBlocked)
	}
	upper := strings.ToUpper(trimmed)
	for _, keyword := range blockedKeywords {
		if containsWord(upper, keyword) {
			common.Logger().Warn("safety: blocked mutating keyword", "keyword", keyword)
			return fmt.Errorf("%w: %s operations are not allowed", ErrBlocked, keyword)
		}
	}
	if !strings.HasPrefix(upper, "SELECT") {
		common.Logger().Warn("safety: blocked non-select statement")
		return fmt.Errorf("%w: only SELECT statements are allowed", ErrBlocked)
	}
	return nil
}

// CleanSQL strips markdown code fences and surrounding whitespace from model
// output so the bare statement can be validated and executed.
func CleanSQL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), ";")
	return strings.TrimSpace(cleaned)
}

// containsWord reports whether keyword occurs in text as a whole word rather
// than as a substring of an identifier such as last_update.
func containsWord(text, keyword string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(keyword)
		beforeOK := idx == 0 || !isWordRune(rune(text[idx-1]))
		afterOK := end >= len(text) || !isWordRune(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
