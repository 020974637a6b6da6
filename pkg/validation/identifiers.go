package validation

// IsValidIdentifierChar checks if a character is valid for identifiers
// (alphanumeric, hyphen, underscore, or dot).
func IsValidIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_' || ch == '.'
}

// IsValidIdentifier reports whether s is a non-empty identifier such as a
// credential reference or provider name
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if !IsValidIdentifierChar(ch) {
			return false
		}
	}
	return true
}
