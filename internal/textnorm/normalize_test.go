package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"numbered sentence", "3. Hello, World!", "helloworld"},
		{"plain", "hello world", "helloworld"},
		{"trailing ordinal", "apple12", "apple"},
		{"internal digits kept", "route 66 west", "route66west"},
		{"curly quotes", "“It’s”", "its"},
		{"straight quotes", `"don't"`, "dont"},
		{"full width space", "こん　にちは", "こんにちは"},
		{"japanese punctuation", "はい。いいえ、はい？", "はいいいえはい"},
		{"full width exclamation", "すごい！", "すごい"},
		{"edge digit exposed by whitespace", "a1 ", "a"},
		{"edge digit exposed by quote", "'1a", "a"},
		{"only digits", "12345", ""},
		{"uppercase", "BONJOUR", "bonjour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("3. Hello, World!", "hello world"))
	assert.True(t, Equal("Dog", "dog."))
	assert.False(t, Equal("dog", "dogs"))
}

func TestAll(t *testing.T) {
	assert.Equal(t, []string{"a", "bc", ""}, All([]string{"A.", "b c", "7"}))
	assert.Empty(t, All(nil))
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, seed := range []string{"", "3. Hello, World!", "a1 ", "'1a", "　。x9", "İstanbul"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	})
}
