package notify

import "strings"

// NormalizePhone rewrites a raw phone number into canonical international
// form: spaces stripped; a leading trunk "0" replaced by the country code;
// bare national numbers prefixed with it; already-international numbers
// returned as-is.
func NormalizePhone(raw, countryCode string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "0") {
		return countryCode + cleaned[1:]
	}
	return countryCode + cleaned
}
