package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "local eight with punctuation", in: "8 (916) 123-45-67", want: "+79161234567", ok: true},
		{name: "bare seven", in: "79161234567", want: "+79161234567", ok: true},
		{name: "already canonical", in: "+79161234567", want: "+79161234567", ok: true},
		{name: "plus seven with spaces", in: "+7 916 123 45 67", want: "+79161234567", ok: true},
		{name: "foreign number keeps plus", in: "+1 202 555 0100", want: "+12025550100", ok: true},
		{name: "short local fragment", in: "916-123", want: "916123", ok: true},
		{name: "eight only", in: "8", want: "+7", ok: true},
		{name: "letters only", in: "call me", want: "", ok: false},
		{name: "empty", in: "", want: "", ok: false},
		{name: "whitespace", in: "   ", want: "", ok: false},
		{name: "plus without digits", in: "+", want: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"8 (916) 123-45-67", "79161234567", "+49 30 123456"}
	for _, in := range inputs {
		once, ok := Normalize(in)
		if !ok {
			t.Fatalf("normalize %q failed", in)
		}
		twice, ok := Normalize(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)
	}
}
