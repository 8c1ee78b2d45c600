package session_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/reugn/kadence/internal/assert"
	"github.com/reugn/kadence/metrics"
	"github.com/reugn/kadence/session"
	"github.com/reugn/kadence/stats"
)

func newService(t *testing.T, opts ...session.Opt) *session.Service {
	t.Helper()
	service := session.NewService(stats.NewAnalyzer(stats.WithCapacity(128)), opts...)
	if err := service.Register(session.DefaultID, 0, "synthetic"); err != nil {
		t.Fatal(err)
	}
	return service
}

func TestService_Register(t *testing.T) {
	service := newService(t)

	err := service.Register(session.DefaultID, 10, "duplicate")
	if !errors.Is(err, session.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	if err := service.Register(7, 4242, "game"); err != nil {
		t.Fatal(err)
	}
	info, err := service.Info(7)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, session.Info{ID: 7, ProcessID: 4242, ProcessName: "game"}, info)
}

func TestService_LiveMetrics(t *testing.T) {
	service := newService(t)

	empty, err := service.LiveMetrics(session.DefaultID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, session.LiveMetrics{}, empty)

	for i := 1; i <= 100; i++ {
		frameTime := 16.0
		if i == 100 {
			frameTime = 64.0
		}
		err := service.Ingest(session.DefaultID, stats.FrameSample{
			TimestampNs: uint64(i) * 16_000_000,
			FrameTimeMs: frameTime,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	live, err := service.LiveMetrics(session.DefaultID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 64.0, live.LastFrameTimeMs)
	assert.InDelta(t, 1000.0/16.48, live.AvgFPS, 1e-9)
	assert.InDelta(t, 1000.0/64.0, live.P1LowFPS, 1e-9)
	assert.Equal(t, uint32(1), live.DroppedLastSec)

	info, err := service.Info(session.DefaultID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, uint64(16_000_000), info.StartTimestampNs)
	assert.Equal(t, uint64(1_600_000_000), info.EndTimestampNs)
	assert.Equal(t, 100, info.SampleCount)
}

func TestService_LastFrameFollowsInsertion(t *testing.T) {
	service := newService(t)

	_ = service.Ingest(session.DefaultID, stats.FrameSample{TimestampNs: 5_000, FrameTimeMs: 12})
	_ = service.Ingest(session.DefaultID, stats.FrameSample{TimestampNs: 1_000, FrameTimeMs: 7})

	live, err := service.LiveMetrics(session.DefaultID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 7.0, live.LastFrameTimeMs)
}

func TestService_NotFound(t *testing.T) {
	service := newService(t)

	_, err := service.LiveMetrics(99)
	assert.ErrorContains(t, err, "session not found")
	_, err = service.Info(99)
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = service.Ingest(99, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 16})
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assert.Equal(t, 1, len(service.List()))
}

func TestService_AutoRegister(t *testing.T) {
	service := newService(t, session.WithAutoRegister(true))

	if err := service.Ingest(3, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 25}); err != nil {
		t.Fatal(err)
	}

	live, err := service.LiveMetrics(3)
	if err != nil {
		t.Fatal(err)
	}
	assert.InDelta(t, 40, live.AvgFPS, 1e-9)

	infos := service.List()
	assert.Equal(t, 2, len(infos))
	assert.Equal(t, session.DefaultID, infos[0].ID)
	assert.Equal(t, uint64(3), infos[1].ID)
	assert.Equal(t, "", infos[1].ProcessName)
}

func TestService_List(t *testing.T) {
	service := newService(t)
	for _, id := range []uint64{40, 5, 12} {
		if err := service.Register(id, int32(id), "p"); err != nil {
			t.Fatal(err)
		}
	}

	var ids []uint64
	for _, info := range service.List() {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []uint64{1, 5, 12, 40}, ids)
}

func TestService_SessionIsolation(t *testing.T) {
	service := newService(t)
	if err := service.Register(2, 0, "other"); err != nil {
		t.Fatal(err)
	}

	_ = service.Ingest(session.DefaultID, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 10})
	_ = service.Ingest(2, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 20})

	first, _ := service.LiveMetrics(session.DefaultID)
	second, _ := service.LiveMetrics(2)
	assert.InDelta(t, 100, first.AvgFPS, 1e-9)
	assert.InDelta(t, 50, second.AvgFPS, 1e-9)
}

func TestService_ConcurrentIngestAndQuery(t *testing.T) {
	service := newService(t)
	if err := service.Register(2, 0, "other"); err != nil {
		t.Fatal(err)
	}

	const samples = 2000
	var wg sync.WaitGroup
	for _, id := range []uint64{session.DefaultID, 2} {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for i := 1; i <= samples; i++ {
				_ = service.Ingest(id, stats.FrameSample{
					TimestampNs: uint64(i) * 10_000_000,
					FrameTimeMs: 10,
				})
			}
		}(id)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < samples; i++ {
				live, err := service.LiveMetrics(session.DefaultID)
				if err != nil {
					t.Error(err)
					return
				}
				// every snapshot is either empty or fully computed
				if live.LastFrameTimeMs != 0 && live.AvgFPS != 100 {
					t.Errorf("inconsistent snapshot: %+v", live)
					return
				}
				_ = service.List()
			}
		}()
	}
	wg.Wait()

	info, err := service.Info(2)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 128, info.SampleCount)
}

func TestService_Metrics(t *testing.T) {
	service := session.NewService(nil)
	if err := service.Register(77, 0, "metrics"); err != nil {
		t.Fatal(err)
	}

	ingested := metrics.SamplesIngested.WithLabelValues("77")
	dropped := metrics.DroppedFrames.WithLabelValues("77")
	before := testutil.ToFloat64(ingested)
	beforeDropped := testutil.ToFloat64(dropped)

	_ = service.Ingest(77, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 16})
	_ = service.Ingest(77, stats.FrameSample{TimestampNs: 2, FrameTimeMs: 55})

	assert.Equal(t, before+2, testutil.ToFloat64(ingested))
	assert.Equal(t, beforeDropped+1, testutil.ToFloat64(dropped))
}

func TestService_MetricSessionLimit(t *testing.T) {
	service := session.NewService(nil,
		session.WithAutoRegister(true),
		session.WithMetricSessionLimit(1))

	labeled := metrics.SamplesIngested.WithLabelValues("901")
	overflow := metrics.SamplesIngested.WithLabelValues(session.OverflowLabel)
	beforeLabeled := testutil.ToFloat64(labeled)
	beforeOverflow := testutil.ToFloat64(overflow)

	for id := uint64(901); id <= 903; id++ {
		if err := service.Ingest(id, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 16}); err != nil {
			t.Fatal(err)
		}
	}

	assert.Equal(t, beforeLabeled+1, testutil.ToFloat64(labeled))
	assert.Equal(t, beforeOverflow+2, testutil.ToFloat64(overflow))
	assert.Equal(t, false, metrics.SamplesIngested.DeleteLabelValues("902"))
	assert.Equal(t, false, metrics.SamplesIngested.DeleteLabelValues("903"))
}
