package benchmark

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostParams describes the machine running the benchmark. Fields that cannot
// be read are left out.
func HostParams() map[string]string {
	params := map[string]string{
		"host_arch":       runtime.GOARCH,
		"host_go_version": runtime.Version(),
	}
	if info, err := host.Info(); err == nil {
		params["host_name"] = info.Hostname
		params["host_platform"] = info.Platform
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		var totalFreq float64
		for _, c := range cpus {
			totalFreq += c.Mhz
		}
		params["host_cpu_count"] = fmt.Sprint(len(cpus))
		params["host_cpu_mhz"] = fmt.Sprintf("%.0f", totalFreq/float64(len(cpus)))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		params["host_ram_gb"] = fmt.Sprintf("%.1f", float64(vm.Total)/1024/1024/1024)
	}
	return params
}
