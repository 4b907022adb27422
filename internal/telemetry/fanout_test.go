package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFanInServiceStatsTagsBySource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := make(chan Sample, 1)
	b := make(chan Sample, 1)
	a <- Sample{CPUPercent: 1}
	b <- Sample{CPUPercent: 2}

	merged := FanInServiceStats(ctx, map[string]<-chan Sample{"a": a, "b": b})

	seen := map[string]float64{}
	for i := 0; i < 2; i++ {
		select {
		case rec := <-merged:
			seen[rec.Service] = rec.CPUPercent
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for merged record")
		}
	}

	assert.Equal(t, 1.0, seen["a"])
	assert.Equal(t, 2.0, seen["b"])
}

func TestFanInServiceStatsClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a := make(chan Sample)
	merged := FanInServiceStats(ctx, map[string]<-chan Sample{"a": a})

	cancel()

	select {
	case _, ok := <-merged:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("merged channel did not close after cancellation")
	}
}

func TestFanInServiceStatsNoProducersWaitsForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	merged := FanInServiceStats(ctx, map[string]<-chan Sample{})

	done := make(chan struct{})
	go func() {
		<-merged
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("channel closed before cancellation")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}
