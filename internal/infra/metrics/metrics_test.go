package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.Transition("advance", "PENDING", "BORN")
	r.Transition("advance", "PENDING", "BORN")
	r.Failure("rewind", "CANNOT_REWIND_PENDING")

	if got := testutil.ToFloat64(r.transitions.WithLabelValues("advance", "PENDING", "BORN")); got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
	if got := testutil.ToFloat64(r.failures.WithLabelValues("rewind", "CANNOT_REWIND_PENDING")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.Transition("advance", "PENDING", "BORN")
	r.Failure("advance", "INVALID_TARGET")
}

func TestHandlerExposesCounters(t *testing.T) {
	r := NewRecorder()
	r.Transition("dissolve", "BORN", "DISSOLVED")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `offspring_lifecycle_transitions_total{from="BORN",operation="dissolve",to="DISSOLVED"} 1`) {
		t.Fatalf("expected transition counter in output, got:\n%s", body)
	}
}
