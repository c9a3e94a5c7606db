//go:build windows

package app

import "runtime"

// sampleMemoryAndCPU reports heap in use only; rusage is not available.
func sampleMemoryAndCPU() (heap, rss uint64, cpu float64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, 0, 0
}
