package flow_test

import (
	"slices"
	"testing"

	ext "github.com/reugn/kadence/extension"
	"github.com/reugn/kadence/flow"
	"github.com/reugn/kadence/internal/assert"
)

func TestPassThrough(t *testing.T) {
	in := make(chan any, 3)
	out := make(chan any, 3)

	ingestSlice([]int{1, 2, 3}, in)
	close(in)

	ext.NewChanSource(in).
		Via(flow.NewPassThrough()).
		Via(flow.NewPassThrough()).
		To(ext.NewChanSink(out))

	assert.Equal(t, []int{1, 2, 3}, readSlice[int](out))
}

func TestMerge(t *testing.T) {
	first := make(chan any, 3)
	second := make(chan any, 2)
	out := make(chan any, 5)

	ingestSlice([]int{1, 3, 5}, first)
	ingestSlice([]int{2, 4}, second)
	close(first)
	close(second)

	flow.Merge(
		ext.NewChanSource(first).Via(flow.NewPassThrough()),
		ext.NewChanSource(second).Via(flow.NewPassThrough()),
	).To(ext.NewChanSink(out))

	merged := readSlice[int](out)
	slices.Sort(merged)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, merged)
}
