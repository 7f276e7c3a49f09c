package guardrail

import "regexp"

// PatternCategory names one class of dangerous content. The same categories are
// applied to inbound prompts and to raw AI output.
type PatternCategory string

const (
	CategorySQL            PatternCategory = "sql"
	CategoryCommand        PatternCategory = "command"
	CategoryScript         PatternCategory = "script"
	CategoryPromptOverride PatternCategory = "prompt_override"
	CategoryPathTraversal  PatternCategory = "path_traversal"
	CategorySensitiveFile  PatternCategory = "sensitive_file"
)

// dangerousPatternOrder fixes the scan order so the category list in errors and
// security events is deterministic.
var dangerousPatternOrder = []PatternCategory{
	CategorySQL,
	CategoryCommand,
	CategoryScript,
	CategoryPromptOverride,
	CategoryPathTraversal,
	CategorySensitiveFile,
}

var dangerousPatterns = map[PatternCategory]*regexp.Regexp{
	// Statement verb combined with a clause keyword. Intentionally also matches
	// benign prose like "select your preferences from the dropdown table"; the
	// trigger conditions are pinned by tests.
	CategorySQL: regexp.MustCompile(`(?i)\b(?:SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC(?:UTE)?)\b[\s\S]*\b(?:FROM|INTO|WHERE|TABLE)\b`),

	// Shell metacharacter followed by a dangerous binary name.
	CategoryCommand: regexp.MustCompile(`(?i)(?:[;|&]|\x60|\$\(|\$\{)\s*(?:rm|cat|chmod|wget|curl|bash|sh|python|node|eval)\b`),

	CategoryScript: regexp.MustCompile(`(?i)(?:<script|<iframe|javascript:|onerror=|onload=|eval\(|alert\()`),

	CategoryPromptOverride: regexp.MustCompile(`(?i)(?:ignore\s+(?:previous|all)\s+(?:instructions?|prompts?)|system\s+prompt|override|disregard|bypass|jailbreak)`),

	CategoryPathTraversal: regexp.MustCompile(`(?i)(?:\.\./|\.\.\\|%2e%2e%2f|%2e%2e%5c|\.\.%2f|\.\.%5c)`),

	CategorySensitiveFile: regexp.MustCompile(`(?i)(?:/etc/passwd|/etc/shadow|\.env\b|config\.json|credentials|secret|api[_-]?key)`),
}

// scanDangerousPatterns returns every matched category, in scan order.
func scanDangerousPatterns(text string) []PatternCategory {
	var matched []PatternCategory
	for _, category := range dangerousPatternOrder {
		if dangerousPatterns[category].MatchString(text) {
			matched = append(matched, category)
		}
	}
	return matched
}
