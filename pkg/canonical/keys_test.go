package canonical

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"{{Content}}":     "CONTENT",
		"content":         "CONTENT",
		"  {{ client }} ": "CLIENT",
		"{{{{nested}}}}":  "NESTED",
		"{{ {{x}} }}":     "X",
		"{{}}":            "",
		"{{partial":       "{{PARTIAL",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "input %q", in)
	}
}

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"HTTPS://WWW.Example.com/path?x=1": "example.com",
		"example.com":                      "example.com",
		"":                                 "",
		"   ":                              "",
		"http://acme.io?ref=mail":          "acme.io",
		"www.www.example.com":              "example.com",
		"sub.example.com/":                 "sub.example.com",
		"https://www.":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDomain(in), "input %q", in)
	}
}

func TestDomainFromEmail(t *testing.T) {
	assert.Equal(t, "example.com", DomainFromEmail("Jane.Doe@WWW.Example.com"))
	assert.Equal(t, "", DomainFromEmail("no-at-sign"))
	assert.Equal(t, "", DomainFromEmail("trailing@"))
}

// Normalization must be idempotent for arbitrary input, including inputs built
// from the characters the rules care about.
func TestNormalization_Idempotent(t *testing.T) {
	alphabet := []rune("{} /?:.wWhtpsHTTPS@aZ\tß")
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		n := rng.Intn(24)
		buf := make([]rune, n)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		s := string(buf)

		k := NormalizeKey(s)
		assert.Equal(t, k, NormalizeKey(k), "NormalizeKey not idempotent for %q", s)

		d := NormalizeDomain(s)
		assert.Equal(t, d, NormalizeDomain(d), "NormalizeDomain not idempotent for %q", s)
	}
}
