package simulator

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// hostStats describes the machine the producer runs on. Readings the
// platform cannot provide are left out.
func hostStats(ctx context.Context) gin.H {
	out := gin.H{}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out["mem_used_percent"] = vm.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out["load1"] = avg.Load1
	}

	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return out
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
		out["process_rss_bytes"] = mi.RSS
	}
	if pct, err := p.CPUPercentWithContext(ctx); err == nil {
		out["process_cpu_percent"] = pct
	}
	return out
}
