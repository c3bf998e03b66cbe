package conversation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/studiolens/whatsapp-relay/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Brazilian state codes
var ufs = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO",
	"MA", "MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI",
	"RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// IsValidCPF checks length and both check digits. Formatting characters are ignored.
func IsValidCPF(raw string) bool {
	cpf := utils.OnlyDigits(raw)
	if len(cpf) != 11 {
		return false
	}
	if strings.Count(cpf, cpf[:1]) == 11 {
		return false
	}

	d := make([]int, 11)
	for i, r := range cpf {
		d[i] = int(r - '0')
	}
	return cpfCheckDigit(d[:9]) == d[9] && cpfCheckDigit(d[:10]) == d[10]
}

// cpfCheckDigit computes the next check digit for the given prefix (9 or 10 digits)
func cpfCheckDigit(prefix []int) int {
	sum := 0
	weight := len(prefix) + 1
	for _, v := range prefix {
		sum += v * weight
		weight--
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// NormalizeCEP returns the CEP as NNNNN-NNN, or false when it does not have 8 digits
func NormalizeCEP(raw string) (string, bool) {
	cep := utils.OnlyDigits(raw)
	if len(cep) != 8 {
		return "", false
	}
	return cep[:5] + "-" + cep[5:], true
}

// NormalizeEmail lower-cases and checks the local@domain.tld shape
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}

// NormalizeUF upper-cases and checks against the 27 state codes
func NormalizeUF(raw string) (string, bool) {
	uf := strings.ToUpper(strings.TrimSpace(raw))
	for _, v := range ufs {
		if v == uf {
			return uf, true
		}
	}
	return "", false
}

// IsFullName wants at least a first and a last name
func IsFullName(raw string) bool {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		for _, r := range p {
			if r >= '0' && r <= '9' {
				return false
			}
		}
	}
	return len([]rune(strings.Join(parts, ""))) >= 4
}

// SplitAddress splits "street, number" on the first comma. Number defaults to S/N.
func SplitAddress(raw string) (street, number string) {
	street, number, found := strings.Cut(raw, ",")
	street = strings.TrimSpace(street)
	number = strings.TrimSpace(number)
	if !found || number == "" {
		number = "S/N"
	}
	return street, number
}

// ParseSelection reads 1-based positions separated by commas or spaces.
// Every token must be a number in [1, n]; the offending tokens are returned otherwise.
// Repeated positions are kept once, in the order first seen.
func ParseSelection(raw string, n int) (positions []int, invalid []string) {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	seen := make(map[int]bool, len(tokens))
	for _, tok := range tokens {
		pos, err := strconv.Atoi(tok)
		if err != nil || pos < 1 || pos > n {
			invalid = append(invalid, tok)
			continue
		}
		if !seen[pos] {
			seen[pos] = true
			positions = append(positions, pos)
		}
	}
	return positions, invalid
}

// ParseInstallments accepts "3" or "3x"
func ParseInstallments(raw string) (int, bool) {
	s := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "x")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatBRL formats a value as R$ 1.234,56
func FormatBRL(v float64) string {
	cents := int64(math.Round(v * 100))
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), cents%100)
}
