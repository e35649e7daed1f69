package api

import "testing"

func TestParseByteRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		header    string
		wantStart int64
		wantEnd   int64
		wantOK    bool
		wantErr   bool
	}{
		{header: "", wantOK: false},
		{header: "bytes=0-99", wantStart: 0, wantEnd: 99, wantOK: true},
		{header: "bytes=999-999", wantStart: 999, wantEnd: 999, wantOK: true},
		{header: "bytes=500-", wantStart: 500, wantEnd: 999, wantOK: true},
		{header: "bytes=-1", wantStart: 999, wantEnd: 999, wantOK: true},
		{header: "bytes=-5000", wantStart: 0, wantEnd: 999, wantOK: true},
		{header: "bytes=0-5000", wantStart: 0, wantEnd: 999, wantOK: true},
		{header: "bytes=1000-", wantErr: true},
		{header: "bytes=50-10", wantErr: true},
		{header: "bytes=-0", wantErr: true},
		{header: "bytes=0-99,100-199", wantErr: true},
		{header: "bytes=", wantErr: true},
		{header: "bytes=abc", wantErr: true},
		{header: "items=0-99", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			br, ok, err := parseByteRange(tt.header, size)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if br.start != tt.wantStart || br.end != tt.wantEnd {
				t.Errorf("range: got %d-%d, want %d-%d", br.start, br.end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseByteRangeEmptyFile(t *testing.T) {
	for _, header := range []string{"bytes=-1", "bytes=-500", "bytes=0-"} {
		t.Run(header, func(t *testing.T) {
			if _, _, err := parseByteRange(header, 0); err == nil {
				t.Fatal("expected error against empty file")
			}
		})
	}
}
