package flow

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/reugn/kadence"
)

// FilterPredicate reports whether an element continues downstream.
type FilterPredicate[T any] func(T) bool

// Filter forwards the elements matching its predicate and counts the ones
// it rejects. The ingest pipeline uses it to skip feed records that failed
// to decode.
//
// in  -- 1 -- 2 ---- 3 -- 4 ------ 5 --
//
// [ -------- FilterPredicate -------- ]
//
// out -- 1 -- 2 ------------------ 5 --
type Filter[T any] struct {
	predicate   FilterPredicate[T]
	in          chan any
	out         chan any
	parallelism int

	passed   atomic.Uint64
	rejected atomic.Uint64
}

var _ kadence.Flow = (*Filter[any])(nil)

// NewFilter returns a new Filter operator running the predicate on
// parallelism goroutines. Element order is preserved only when parallelism
// is 1.
//
// NewFilter panics if parallelism is less than 1.
func NewFilter[T any](predicate FilterPredicate[T], parallelism int) *Filter[T] {
	if parallelism < 1 {
		panic(fmt.Sprintf("nonpositive Filter parallelism: %d", parallelism))
	}

	filter := &Filter[T]{
		predicate:   predicate,
		in:          make(chan any),
		out:         make(chan any),
		parallelism: parallelism,
	}
	go filter.stream()

	return filter
}

// Passed returns the number of elements forwarded so far.
func (f *Filter[T]) Passed() uint64 {
	return f.passed.Load()
}

// Rejected returns the number of elements discarded so far.
func (f *Filter[T]) Rejected() uint64 {
	return f.rejected.Load()
}

// Via asynchronously streams data to the given Flow and returns it.
func (f *Filter[T]) Via(flow kadence.Flow) kadence.Flow {
	go f.transmit(flow)
	return flow
}

// To streams data to the given Sink and blocks until the Sink has completed
// processing all data.
func (f *Filter[T]) To(sink kadence.Sink) {
	f.transmit(sink)
	sink.AwaitCompletion()
}

// Out returns the output channel of the Filter operator.
func (f *Filter[T]) Out() <-chan any {
	return f.out
}

// In returns the input channel of the Filter operator.
func (f *Filter[T]) In() chan<- any {
	return f.in
}

func (f *Filter[T]) transmit(inlet kadence.Inlet) {
	for element := range f.Out() {
		inlet.In() <- element
	}
	close(inlet.In())
}

func (f *Filter[T]) stream() {
	defer close(f.out)

	var wg sync.WaitGroup
	wg.Add(f.parallelism)
	for range f.parallelism {
		go func() {
			defer wg.Done()
			for element := range f.in {
				if !f.predicate(element.(T)) {
					f.rejected.Add(1)
					continue
				}
				f.passed.Add(1)
				f.out <- element
			}
		}()
	}
	wg.Wait()
}
