package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestCollectorAggregates(t *testing.T) {
	c := NewCollector(true)
	c.RecordTaskRun("compile", 100*time.Millisecond, nil)
	c.RecordTaskRun("compile", 50*time.Millisecond, errors.New("boom"))
	c.RecordTaskRun("accounts", 5*time.Millisecond, nil)

	stats := c.Summary()
	if len(stats) != 2 {
		t.Fatalf("stats for %d tasks, want 2", len(stats))
	}
	compile := stats["compile"]
	if compile.Count != 2 || compile.Errors != 1 || compile.Total != 150*time.Millisecond {
		t.Errorf("compile stats = %+v", compile)
	}
	if stats["accounts"].Errors != 0 {
		t.Errorf("accounts stats = %+v", stats["accounts"])
	}
}

func TestCollectorDisabled(t *testing.T) {
	c := NewCollector(false)
	c.RecordTaskRun("compile", time.Second, nil)
	if len(c.Summary()) != 0 {
		t.Fatal("disabled collector must not record")
	}
}

func TestSummaryReturnsCopy(t *testing.T) {
	c := NewCollector(true)
	c.RecordTaskRun("compile", time.Second, nil)

	s := c.Summary()
	s["compile"] = TaskStats{Count: 99}
	if c.Summary()["compile"].Count != 1 {
		t.Fatal("summary must be a copy")
	}
}
