package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/151henry151/rompmusic-server/internal/domain"
)

func TestStartScanReturnsAccepted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/scan", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rec.Code)
	}

	run := decodeData[domain.ScanRun](t, rec)
	if run.ID == 0 {
		t.Error("expected a run ID in the response")
	}
	if run.TriggeredBy != domain.TriggerManual {
		t.Errorf("triggered_by: got %q, want %q", run.TriggeredBy, domain.TriggerManual)
	}

	ts.scanner.Wait()

	// An empty library scans clean.
	final, err := ts.store.GetScanRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetScanRun: %v", err)
	}
	if final.Status != domain.ScanSucceeded {
		t.Errorf("final status: got %q, want %q", final.Status, domain.ScanSucceeded)
	}
}

func TestStartScanRecordsActorHeader(t *testing.T) {
	ts := newTestServer(t)

	h := http.Header{}
	h.Set("X-Actor", "admin-console")
	rec := ts.do(t, http.MethodPost, "/api/v1/scan", h)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rec.Code)
	}

	run := decodeData[domain.ScanRun](t, rec)
	if run.TriggeredBy != domain.ScanTrigger("admin-console") {
		t.Errorf("triggered_by: got %q, want admin-console", run.TriggeredBy)
	}
	ts.scanner.Wait()
}

func TestCancelScanWhenIdleReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/scan/cancel", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestScanStatusWithNoRunsReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/scan/status", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestScanStatusReflectsLatestRun(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/scan", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status: got %d, want 202", rec.Code)
	}
	ts.scanner.Wait()

	rec = ts.do(t, http.MethodGet, "/api/v1/scan/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	run := decodeData[domain.ScanRun](t, rec)
	if !run.Status.IsTerminal() {
		t.Errorf("expected a terminal run after Wait, got %q", run.Status)
	}
}

func TestListScanRunsEmptyIsOK(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/scan/runs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	runs := decodeData[[]*domain.ScanRun](t, rec)
	if len(runs) != 0 {
		t.Errorf("runs: got %d, want 0", len(runs))
	}
}
