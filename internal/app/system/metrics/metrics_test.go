package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNop_DiscardsEverything(t *testing.T) {
	var c Collector = NewNop()
	c.ObserveOperation("confirm", "ok", time.Millisecond)
	c.RecordRejection("HOUSEFULL")
	c.RecordLeaseContention()
	c.RecordLeasesReaped(3)
}

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.ObserveOperation("confirm", "ok", 10*time.Millisecond)
	p.ObserveOperation("confirm", "ALREADY_PROCESSING", time.Millisecond)
	p.RecordRejection("HOUSEFULL")
	p.RecordRejection("HOUSEFULL")
	p.RecordLeaseContention()
	p.RecordLeasesReaped(2)
	p.RecordLeasesReaped(0)

	require.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("confirm", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(p.rejections.WithLabelValues("HOUSEFULL")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.leaseContention))
	require.Equal(t, 2.0, testutil.ToFloat64(p.leasesReaped))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["test_calendar_operations_total"])
	require.True(t, names["test_calendar_operation_seconds"])
}
