package otelmetrics

import (
	"context"
	"testing"
	"time"

	"mvcclist/list"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCollector_Interface(t *testing.T) {
	var _ list.MetricsCollector = (*Collector)(nil)
}

func TestNewCollector_NilProvider(t *testing.T) {
	c, err := NewCollector(nil)
	if err == nil {
		t.Fatal("NewCollector(nil) returned nil error")
	}
	if c != nil {
		t.Fatal("NewCollector(nil) returned a non-nil collector")
	}
}

func TestCollector_RecordInsertAndRemove(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	c, err := NewCollector(provider)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.RecordInsert("tail", 1000, true)
	c.RecordInsert("tail", 2000, false)
	c.RecordRemove("identity", 1500, true)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var insertsTotal, removesTotal int64
	var insertSamples, removeSamples uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "mvcclist_inserts_total":
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
					insertsTotal = sum.DataPoints[0].Value
				}
			case "mvcclist_removes_total":
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
					removesTotal = sum.DataPoints[0].Value
				}
			case "mvcclist_insert_latency_ns":
				if hist, ok := m.Data.(metricdata.Histogram[int64]); ok {
					for _, dp := range hist.DataPoints {
						insertSamples += dp.Count
					}
				}
			case "mvcclist_remove_latency_ns":
				if hist, ok := m.Data.(metricdata.Histogram[int64]); ok {
					for _, dp := range hist.DataPoints {
						removeSamples += dp.Count
					}
				}
			}
		}
	}

	if insertsTotal != 1 {
		t.Errorf("mvcclist_inserts_total = %d, want 1 (only the ok=true insert counts)", insertsTotal)
	}
	if removesTotal != 1 {
		t.Errorf("mvcclist_removes_total = %d, want 1", removesTotal)
	}
	if insertSamples != 2 {
		t.Errorf("insert latency samples = %d, want 2 (every call, ok or not)", insertSamples)
	}
	if removeSamples != 1 {
		t.Errorf("remove latency samples = %d, want 1", removeSamples)
	}
}

func TestCollector_RecordReclaimAndCommit(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	c, err := NewCollector(provider, WithMeterName("mvcclist_test"))
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.RecordReclaim(4, 3, 1)
	c.RecordCommit(5*time.Microsecond, 2)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("no scope metrics recorded")
	}
	if rm.ScopeMetrics[0].Scope.Name != "mvcclist_test" {
		t.Errorf("scope name = %q, want %q", rm.ScopeMetrics[0].Scope.Name, "mvcclist_test")
	}

	var sawUnlinked, sawFreed, sawDeferred, sawCommit bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "mvcclist_reclaim_unlinked_total":
				sawUnlinked = true
			case "mvcclist_reclaim_freed_total":
				sawFreed = true
			case "mvcclist_reclaim_deferred_total":
				sawDeferred = true
			case "mvcclist_commit_latency_ns":
				sawCommit = true
			}
		}
	}
	if !sawUnlinked || !sawFreed || !sawDeferred || !sawCommit {
		t.Fatalf("missing expected metrics: unlinked=%v freed=%v deferred=%v commit=%v",
			sawUnlinked, sawFreed, sawDeferred, sawCommit)
	}
}
