package normalize

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  The Beatles ", "The Beatles"},
		{"The   Beatles", "The Beatles"},
		{"Miles\tDavis", "Miles Davis"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"The Beatles", "the beatles"},
		{"THE  BEATLES ", "The Beatles"},
		{"Sigur Rós", "SIGUR RÓS"},
		{"Straße", "STRASSE"}, // case folding, not just lowercasing
	}
	for _, p := range pairs {
		if Key(p[0]) != Key(p[1]) {
			t.Errorf("Key(%q) = %q, Key(%q) = %q; want equal", p[0], Key(p[0]), p[1], Key(p[1]))
		}
	}
}

func TestKeyDistinct(t *testing.T) {
	if Key("Low") == Key("Lower") {
		t.Error("distinct names must produce distinct keys")
	}
}
