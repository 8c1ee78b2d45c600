package flow_test

import (
	"testing"

	"github.com/reugn/kadence"
	ext "github.com/reugn/kadence/extension"
	"github.com/reugn/kadence/flow"
	"github.com/reugn/kadence/internal/assert"
	"github.com/reugn/kadence/stats"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		filterFlow kadence.Flow
		ptr        bool
	}{
		{
			name:       "values",
			filterFlow: flow.NewFilter(isDropped, 1),
		},
		{
			name: "pointers",
			filterFlow: flow.NewFilter(func(sample *stats.FrameSample) bool {
				return isDropped(*sample)
			}, 1),
			ptr: true,
		},
	}
	input := frameSamples(16, 50, 12, 49.9, 120)
	expected := []stats.FrameSample{input[1], input[4]}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make(chan any, len(input))
			out := make(chan any, len(input))

			source := ext.NewChanSource(in)
			sink := ext.NewChanSink(out)

			if tt.ptr {
				ingestSlice(ptrSlice(input), in)
			} else {
				ingestSlice(input, in)
			}
			close(in)

			source.
				Via(tt.filterFlow).
				To(sink)

			if tt.ptr {
				var output []stats.FrameSample
				for _, sample := range readSlice[*stats.FrameSample](out) {
					output = append(output, *sample)
				}
				assert.Equal(t, expected, output)
			} else {
				assert.Equal(t, expected, readSlice[stats.FrameSample](out))
			}
		})
	}
}

func TestFilter_NonPositiveParallelism(t *testing.T) {
	assert.Panics(t, func() {
		flow.NewFilter(isDropped, 0)
	})
	assert.Panics(t, func() {
		flow.NewFilter(isDropped, -1)
	})
}

func TestFilter_Counters(t *testing.T) {
	in := make(chan any, 5)
	out := make(chan any, 5)
	ingestSlice(frameSamples(16, 50, 12, 49.9, 120), in)
	close(in)

	filter := flow.NewFilter(isDropped, 2)
	ext.NewChanSource(in).
		Via(filter).
		To(ext.NewChanSink(out))

	assert.Equal(t, 2, len(readSlice[stats.FrameSample](out)))
	assert.Equal(t, uint64(2), filter.Passed())
	assert.Equal(t, uint64(3), filter.Rejected())
}
