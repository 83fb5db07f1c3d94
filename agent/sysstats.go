/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package agent

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// SysStats collects host/process-level metrics to fold in next to the
// protocol counters.
type SysStats struct {
	memstats *runtime.MemStats
}

// CollectRuntimeStats gathers process CPU/memory/fd counts and Go runtime
// memory stats.
func (s *SysStats) CollectRuntimeStats() (map[string]uint64, error) {
	stats := make(map[string]uint64)
	m := &runtime.MemStats{}
	runtime.ReadMemStats(m)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	stats["process.alive_since"] = uint64(procStartTime.Unix())
	stats["process.uptime"] = uint64(time.Now().Unix() - procStartTime.Unix())

	if val, err := proc.Percent(0); err == nil {
		stats["process.cpu_permil"] = uint64(val * 1000)
	}
	if val, err := proc.MemoryInfo(); err == nil {
		stats["process.rss"] = uint64(val.RSS)
		stats["process.vms"] = uint64(val.VMS)
	}
	if val, err := proc.NumFDs(); err == nil {
		stats["process.num_fds"] = uint64(val)
	}
	if val, err := proc.NumThreads(); err == nil {
		stats["process.num_threads"] = uint64(val)
	}

	stats["runtime.goroutines"] = uint64(runtime.NumGoroutine())
	stats["runtime.mem.heap_alloc"] = m.HeapAlloc
	stats["runtime.mem.heap_inuse"] = m.HeapInuse
	stats["runtime.mem.gc_count"] = uint64(m.NumGC)

	s.memstats = m
	return stats, nil
}

// key namespaces a sysstats reading under prefix before it's folded into
// Stats, so it can't collide with a protocol counter name.
func key(prefix, name string) string {
	return fmt.Sprintf("%s.%s", prefix, name)
}
