package metrics

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

var startedAt = time.Now()

// SysHealth represents real-time process and storage metrics.
type SysHealth struct {
	AllocMB       uint64        `json:"alloc_mb"`
	SysMB         uint64        `json:"sys_mb"`
	NumGC         uint32        `json:"num_gc"`
	Goroutines    int           `json:"goroutines"`
	Uptime        time.Duration `json:"uptime_ns"`
	DataDiskBytes int64         `json:"data_disk_bytes"`
	DataDiskSize  string        `json:"data_disk_size"`
}

// GetSysHealth collects health data. dataPath may be a file or a directory.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	size := diskUsage(dataPath)
	return SysHealth{
		AllocMB:       m.Alloc / 1024 / 1024,
		SysMB:         m.Sys / 1024 / 1024,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        time.Since(startedAt).Truncate(time.Second),
		DataDiskBytes: size,
		DataDiskSize:  humanize.IBytes(uint64(size)),
	}
}

func diskUsage(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
