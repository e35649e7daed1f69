package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("trk")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(got, "trk-") {
		t.Errorf("expected trk- prefix, got %q", got)
	}
	if len(got) != len("trk-")+21 {
		t.Errorf("expected 21-char nanoid after prefix, got %q (len %d)", got, len(got))
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := MustGenerate("run")
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
