//go:build !windows

package app

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

var (
	lastCPUWall   time.Time
	lastCPUProc   time.Duration
	haveCPUSample bool
)

// sampleMemoryAndCPU reports heap in use, peak RSS and the process CPU share
// since the previous call. Only the TUI ticker calls it, one call at a time.
func sampleMemoryAndCPU() (heap, rss uint64, cpu float64) {
	var rusage unix.Rusage
	_ = unix.Getrusage(unix.RUSAGE_SELF, &rusage)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	heap = ms.HeapAlloc
	rss = uint64(rusage.Maxrss)
	if runtime.GOOS != "darwin" {
		rss *= 1024 // KB to bytes
	}

	nowWall := time.Now()
	user := time.Duration(rusage.Utime.Sec)*time.Second + time.Duration(rusage.Utime.Usec)*time.Microsecond
	sys := time.Duration(rusage.Stime.Sec)*time.Second + time.Duration(rusage.Stime.Usec)*time.Microsecond
	nowProc := user + sys
	if haveCPUSample {
		if wallDiff := nowWall.Sub(lastCPUWall); wallDiff > 0 {
			cpu = max((nowProc-lastCPUProc).Seconds()/wallDiff.Seconds()*100, 0)
		}
	}
	lastCPUWall = nowWall
	lastCPUProc = nowProc
	haveCPUSample = true
	return heap, rss, cpu
}
