package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordScan(t *testing.T) {
	before := testutil.ToFloat64(scansTotal.WithLabelValues("walk", "ok"))
	RecordScan("walk", "ok", 2*time.Second)
	RecordScan("walk", "failed", 0)
	if got := testutil.ToFloat64(scansTotal.WithLabelValues("walk", "ok")) - before; got != 1 {
		t.Errorf("ok scans grew by %v; want 1", got)
	}
	if got := testutil.CollectAndCount(scanDuration); got == 0 {
		t.Error("scan duration has no series after a successful scan")
	}
}

func TestRecordMutation(t *testing.T) {
	applied := testutil.ToFloat64(mutationsTotal.WithLabelValues("toggle", "applied"))
	noop := testutil.ToFloat64(mutationsTotal.WithLabelValues("toggle", "noop"))
	RecordMutation("toggle", true)
	RecordMutation("toggle", false)
	RecordMutation("toggle", false)
	if got := testutil.ToFloat64(mutationsTotal.WithLabelValues("toggle", "applied")) - applied; got != 1 {
		t.Errorf("applied grew by %v; want 1", got)
	}
	if got := testutil.ToFloat64(mutationsTotal.WithLabelValues("toggle", "noop")) - noop; got != 2 {
		t.Errorf("noop grew by %v; want 2", got)
	}
}

func TestSetViewNodes(t *testing.T) {
	SetViewNodes(42)
	if got := testutil.ToFloat64(viewNodes); got != 42 {
		t.Errorf("view nodes = %v; want 42", got)
	}
}

func TestMiddlewareCountsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/x", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/x", "418")) - before; got != 1 {
		t.Errorf("requests with 418 grew by %v; want 1", got)
	}
}
