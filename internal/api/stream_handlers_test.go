package api

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func rangeHeader(value string) http.Header {
	h := http.Header{}
	h.Set("Range", value)
	return h
}

func TestStreamUnknownTrackReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/stream/trk-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestStreamFullFile(t *testing.T) {
	ts := newTestServer(t)
	content := bytes.Repeat([]byte("a"), 1000)
	track := ts.seedTrack(t, "x/y/full.mp3", "Full", "X", "Y", content)

	rec := ts.do(t, http.MethodGet, "/api/v1/stream/"+track.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000" {
		t.Errorf("Content-Length: got %q, want 1000", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges: got %q, want bytes", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type: got %q, want audio/mpeg", got)
	}
	if rec.Body.Len() != 1000 {
		t.Errorf("body length: got %d, want 1000", rec.Body.Len())
	}
}

func TestStreamRangeRequests(t *testing.T) {
	ts := newTestServer(t)
	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	track := ts.seedTrack(t, "x/y/range.mp3", "Range", "X", "Y", content)

	tests := []struct {
		name         string
		header       string
		wantStatus   int
		wantRange    string
		wantBodyFrom int
		wantBodyLen  int
	}{
		{
			name:         "first hundred bytes",
			header:       "bytes=0-99",
			wantStatus:   http.StatusPartialContent,
			wantRange:    "bytes 0-99/1000",
			wantBodyFrom: 0,
			wantBodyLen:  100,
		},
		{
			name:         "interior window",
			header:       "bytes=500-749",
			wantStatus:   http.StatusPartialContent,
			wantRange:    "bytes 500-749/1000",
			wantBodyFrom: 500,
			wantBodyLen:  250,
		},
		{
			name:         "open ended",
			header:       "bytes=900-",
			wantStatus:   http.StatusPartialContent,
			wantRange:    "bytes 900-999/1000",
			wantBodyFrom: 900,
			wantBodyLen:  100,
		},
		{
			name:         "suffix",
			header:       "bytes=-100",
			wantStatus:   http.StatusPartialContent,
			wantRange:    "bytes 900-999/1000",
			wantBodyFrom: 900,
			wantBodyLen:  100,
		},
		{
			name:         "end clamped to file size",
			header:       "bytes=950-2000",
			wantStatus:   http.StatusPartialContent,
			wantRange:    "bytes 950-999/1000",
			wantBodyFrom: 950,
			wantBodyLen:  50,
		},
		{
			name:       "start beyond file size",
			header:     "bytes=2000-",
			wantStatus: http.StatusRequestedRangeNotSatisfiable,
			wantRange:  "bytes */1000",
		},
		{
			name:       "multi range declined",
			header:     "bytes=0-99,200-299",
			wantStatus: http.StatusRequestedRangeNotSatisfiable,
			wantRange:  "bytes */1000",
		},
		{
			name:       "malformed",
			header:     "bytes=abc-def",
			wantStatus: http.StatusRequestedRangeNotSatisfiable,
			wantRange:  "bytes */1000",
		},
		{
			name:       "wrong unit",
			header:     "chunks=0-99",
			wantStatus: http.StatusRequestedRangeNotSatisfiable,
			wantRange:  "bytes */1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/v1/stream/"+track.ID, rangeHeader(tt.header))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range: got %q, want %q", got, tt.wantRange)
			}
			if tt.wantStatus != http.StatusPartialContent {
				return
			}

			body := rec.Body.Bytes()
			if len(body) != tt.wantBodyLen {
				t.Fatalf("body length: got %d, want %d", len(body), tt.wantBodyLen)
			}
			want := content[tt.wantBodyFrom : tt.wantBodyFrom+tt.wantBodyLen]
			if !bytes.Equal(body, want) {
				t.Error("body does not match the requested byte window")
			}
		})
	}
}

func TestStreamSuffixRangeOnEmptyFile(t *testing.T) {
	ts := newTestServer(t)
	track := ts.seedTrack(t, "x/y/empty.mp3", "Empty", "X", "Y", nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/stream/"+track.ID, rangeHeader("bytes=-100"))
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status: got %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */0" {
		t.Errorf("Content-Range: got %q, want %q", got, "bytes */0")
	}
}

func TestStreamRejectsPathEscapingLibraryRoot(t *testing.T) {
	ts := newTestServer(t)

	// A row whose stored path climbs out of the library root must never be
	// served, even though the target file exists on disk.
	track := ts.seedTrack(t, "../outside.mp3", "Outside", "A", "B", []byte("secret"))

	rec := ts.do(t, http.MethodGet, "/api/v1/stream/"+track.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestStreamMissingFileOnDisk(t *testing.T) {
	ts := newTestServer(t)
	track := ts.seedTrack(t, "a/gone.mp3", "Gone", "A", "B", []byte("x"))

	if err := os.Remove(filepath.Join(ts.root, "a", "gone.mp3")); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/stream/"+track.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}
