package utils

import (
	"strings"
	"unicode"
)

// OnlyDigits strips everything that is not 0-9
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone turns the different sender formats providers use
// ("whatsapp:+55 11 9...", "5511...@c.us", "+5511...") into bare digits
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	return OnlyDigits(s)
}

// SamePhone compares two numbers after normalization. Empty never matches.
func SamePhone(a, b string) bool {
	na, nb := NormalizePhone(a), NormalizePhone(b)
	return na != "" && na == nb
}

// MaskPhone hides the middle of a number for logs
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return phone
	}
	return phone[:4] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-2:]
}

// FirstName returns the first word of a full name, title-cased
func FirstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	r := []rune(strings.ToLower(fields[0]))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
