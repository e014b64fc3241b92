package lib

import "testing"
import "time"

func TestAverageLatency(t *testing.T) {
	av := &AverageInt64{}
	if x, y := int64(0), av.Mean(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	}

	latencies := []time.Duration{
		120 * time.Nanosecond, 80 * time.Nanosecond, 95 * time.Nanosecond,
		2 * time.Microsecond, 105 * time.Nanosecond,
	}
	for _, latency := range latencies {
		av.Add(int64(latency))
	}
	if x, y := int64(5), av.Samples(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	} else if x, y := int64(80), av.Min(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	} else if x, y := int64(2000), av.Max(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	} else if x, y := int64(2400/5), av.Mean(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	}
}

func TestAverageNegative(t *testing.T) {
	av := &AverageInt64{}
	for _, sample := range []int64{-3, -7, -1} {
		av.Add(sample)
	}
	if x, y := int64(-7), av.Min(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	} else if x, y := int64(-1), av.Max(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	} else if x, y := int64(-11/3), av.Mean(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	}
}

func BenchmarkAvgintAdd(b *testing.B) {
	av := &AverageInt64{}
	for i := 0; i < b.N; i++ {
		av.Add(int64(i))
	}
}
