package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCPF(t *testing.T) {
	assert.True(t, IsValidCPF("11144477735"))
	assert.True(t, IsValidCPF("111.444.777-35"))
	assert.True(t, IsValidCPF("52998224725"))

	assert.False(t, IsValidCPF("11111111111"))
	assert.False(t, IsValidCPF("00000000000"))
	assert.False(t, IsValidCPF("11144477725"), "first check digit altered")
	assert.False(t, IsValidCPF("11144477736"), "second check digit altered")
	assert.False(t, IsValidCPF("1114447773"))
	assert.False(t, IsValidCPF(""))
	assert.False(t, IsValidCPF("abc"))
}

func TestIsValidCPF_AllRepeatedDigits(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		cpf := string([]rune{d, d, d, d, d, d, d, d, d, d, d})
		assert.False(t, IsValidCPF(cpf), cpf)
	}
}

func TestNormalizeCEP(t *testing.T) {
	cep, ok := NormalizeCEP("01310100")
	assert.True(t, ok)
	assert.Equal(t, "01310-100", cep)

	cep, ok = NormalizeCEP("01310-100")
	assert.True(t, ok)
	assert.Equal(t, "01310-100", cep)

	_, ok = NormalizeCEP("1234")
	assert.False(t, ok)
}

func TestNormalizeEmail(t *testing.T) {
	email, ok := NormalizeEmail("  Maria.Silva@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "maria.silva@example.com", email)

	for _, bad := range []string{"maria", "maria@", "@example.com", "maria@example", "ma ria@example.com"} {
		_, ok := NormalizeEmail(bad)
		assert.False(t, ok, bad)
	}
}

func TestNormalizeUF(t *testing.T) {
	uf, ok := NormalizeUF(" sp ")
	assert.True(t, ok)
	assert.Equal(t, "SP", uf)

	_, ok = NormalizeUF("XX")
	assert.False(t, ok)
	assert.Len(t, ufs, 27)
}

func TestIsFullName(t *testing.T) {
	assert.True(t, IsFullName("Maria Silva"))
	assert.True(t, IsFullName("  João   da Costa "))
	assert.False(t, IsFullName("Maria"))
	assert.False(t, IsFullName("Maria 123"))
	assert.False(t, IsFullName("A B"))
}

func TestSplitAddress(t *testing.T) {
	street, number := SplitAddress("Rua das Flores, 123, apto 4")
	assert.Equal(t, "Rua das Flores", street)
	assert.Equal(t, "123, apto 4", number)

	street, number = SplitAddress("Rua das Flores")
	assert.Equal(t, "Rua das Flores", street)
	assert.Equal(t, "S/N", number)
}

func TestParseSelection(t *testing.T) {
	pos, invalid := ParseSelection("1,3", 3)
	assert.Equal(t, []int{1, 3}, pos)
	assert.Empty(t, invalid)

	pos, invalid = ParseSelection("1, 3 2,1", 3)
	assert.Equal(t, []int{1, 3, 2}, pos)
	assert.Empty(t, invalid)

	_, invalid = ParseSelection("1,4", 3)
	assert.Equal(t, []string{"4"}, invalid)

	_, invalid = ParseSelection("0,x,2", 3)
	assert.Equal(t, []string{"0", "x"}, invalid)
}

func TestParseInstallments(t *testing.T) {
	n, ok := ParseInstallments("3x")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParseInstallments("três")
	assert.False(t, ok)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 40,00", FormatBRL(40))
	assert.Equal(t, "R$ 1.234,56", FormatBRL(1234.56))
	assert.Equal(t, "R$ 1.000.000,10", FormatBRL(1000000.1))
	assert.Equal(t, "R$ 0,05", FormatBRL(0.05))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "13/02/2026", formatDate("2026-02-13"))
	assert.Equal(t, "amanhã", formatDate("amanhã"))
}
