package flow_test

import (
	"github.com/reugn/kadence/stats"
)

func ingestSlice[T any](source []T, in chan any) {
	for _, e := range source {
		in <- e
	}
}

func readSlice[T any](ch <-chan any) []T {
	var result []T
	for e := range ch {
		result = append(result, e.(T))
	}
	return result
}

func ptrSlice[T any](slice []T) []*T {
	result := make([]*T, len(slice))
	for i := range slice {
		result[i] = &slice[i]
	}
	return result
}

func frameSamples(frameTimes ...float64) []stats.FrameSample {
	samples := make([]stats.FrameSample, len(frameTimes))
	for i, frameTime := range frameTimes {
		samples[i] = stats.FrameSample{
			TimestampNs: uint64(i+1) * 16_000_000,
			FrameTimeMs: frameTime,
		}
	}
	return samples
}

func isDropped(sample stats.FrameSample) bool {
	return sample.FrameTimeMs >= stats.DefaultDropThresholdMs
}
