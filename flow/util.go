package flow

import (
	"sync"

	"github.com/reugn/kadence"
)

// DoStream streams data from the outlet to inlet.
func DoStream(outlet kadence.Outlet, inlet kadence.Inlet) {
	go func() {
		for element := range outlet.Out() {
			inlet.In() <- element
		}

		close(inlet.In())
	}()
}

// Merge merges multiple flows into a single flow.
// When all specified outlets are closed, the resulting flow will close.
func Merge(outlets ...kadence.Flow) kadence.Flow {
	merged := NewPassThrough()
	var wg sync.WaitGroup
	wg.Add(len(outlets))

	for _, out := range outlets {
		go func(outlet kadence.Outlet) {
			for element := range outlet.Out() {
				merged.In() <- element
			}
			wg.Done()
		}(out)
	}

	// close the in channel on the last outlet close
	go func() {
		wg.Wait()
		close(merged.In())
	}()

	return merged
}
