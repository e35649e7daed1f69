package errors

import (
	"net/http"
	"testing"
)

func TestNotFoundfFormatsMessage(t *testing.T) {
	err := NotFoundf("track %s not found", "trk-abc123")
	if err.Message != "track trk-abc123 not found" {
		t.Errorf("message: got %q", err.Message)
	}
	if !Is(err, ErrNotFound) {
		t.Error("NotFoundf result does not match ErrNotFound")
	}
	if err.HTTPStatus() != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", err.HTTPStatus())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := New("disk on fire")
	err := Wrap(cause, CodeInternal, "query failed")
	if !Is(err, cause) {
		t.Error("wrapped cause not found by Is")
	}
	if got := err.Error(); got != "query failed: disk on fire" {
		t.Errorf("Error(): got %q", got)
	}
}
