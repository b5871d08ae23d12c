package sanitizer

import "strings"

// NormalizeEmail trims and lowercases the address. The mailbox is otherwise
// left as typed; malformed input is for the validator to reject.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaskEmail keeps the first character of the local part and the full domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	runes := []rune(local)
	if len(runes) == 1 {
		return "*@" + domain
	}
	return string(runes[:1]) + strings.Repeat("*", len(runes)-1) + "@" + domain
}
