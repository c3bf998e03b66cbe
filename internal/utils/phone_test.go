package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"whatsapp:+5511999990000": "5511999990000",
		"5511999990000@c.us":      "5511999990000",
		"+55 (11) 99999-0000":     "5511999990000",
		"  5511999990000 ":        "5511999990000",
		"":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestSamePhone(t *testing.T) {
	assert.True(t, SamePhone("whatsapp:+5511999990000", "5511999990000"))
	assert.False(t, SamePhone("5511999990000", "5511999990001"))
	assert.False(t, SamePhone("", ""))
}

func TestOnlyDigits(t *testing.T) {
	assert.Equal(t, "52998224725", OnlyDigits("529.982.247-25"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "5511*******00", MaskPhone("5511999990000"))
	assert.Equal(t, "123", MaskPhone("123"))
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Maria", FirstName("MARIA da silva"))
	assert.Equal(t, "", FirstName("   "))
}
