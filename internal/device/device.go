// Package device reports the host CPU the trainer runs on.
package device

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Info describes the host CPU.
type Info struct {
	Brand          string
	Vendor         string
	PhysicalCores  int
	LogicalCores   int
	ThreadsPerCore int
	CacheLine      int   // bytes
	L1D            int   // bytes, -1 if unknown
	L2             int   // bytes, -1 if unknown
	L3             int   // bytes, -1 if unknown
	Hz             int64 // base frequency, 0 if unknown
	SIMD           []string
}

// simdFeatures are the vector extensions worth reporting for dense float64 math.
var simdFeatures = []struct {
	id   cpuid.FeatureID
	name string
}{
	{cpuid.SSE2, "SSE2"},
	{cpuid.SSE4, "SSE4.1"},
	{cpuid.AVX, "AVX"},
	{cpuid.AVX2, "AVX2"},
	{cpuid.FMA3, "FMA3"},
	{cpuid.AVX512F, "AVX512F"},
	{cpuid.AVX512DQ, "AVX512DQ"},
	{cpuid.ASIMD, "ASIMD"},
	{cpuid.SVE, "SVE"},
}

// Detect queries the CPU once through cpuid.
func Detect() Info {
	c := cpuid.CPU
	info := Info{
		Brand:          strings.TrimSpace(c.BrandName),
		Vendor:         c.VendorString,
		PhysicalCores:  c.PhysicalCores,
		LogicalCores:   c.LogicalCores,
		ThreadsPerCore: c.ThreadsPerCore,
		CacheLine:      c.CacheLine,
		L1D:            c.Cache.L1D,
		L2:             c.Cache.L2,
		L3:             c.Cache.L3,
		Hz:             c.Hz,
	}
	for _, f := range simdFeatures {
		if c.Supports(f.id) {
			info.SIMD = append(info.SIMD, f.name)
		}
	}
	if info.Brand == "" {
		info.Brand = "unknown"
	}
	return info
}

// HasAVX2 reports whether AVX2 and FMA3 are both available.
func (i Info) HasAVX2() bool {
	return i.has("AVX2") && i.has("FMA3")
}

func (i Info) has(feature string) bool {
	for _, f := range i.SIMD {
		if f == feature {
			return true
		}
	}
	return false
}

// String renders a multi-line report for the CLI.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CPU:        %s (%s)\n", i.Brand, i.Vendor)
	fmt.Fprintf(&sb, "Cores:      %d physical, %d logical (%d threads/core)\n",
		i.PhysicalCores, i.LogicalCores, i.ThreadsPerCore)
	fmt.Fprintf(&sb, "Cache:      line %dB, L1d %s, L2 %s, L3 %s\n",
		i.CacheLine, formatBytes(i.L1D), formatBytes(i.L2), formatBytes(i.L3))
	if i.Hz > 0 {
		fmt.Fprintf(&sb, "Frequency:  %.2f GHz\n", float64(i.Hz)/1e9)
	}
	simd := "none"
	if len(i.SIMD) > 0 {
		simd = strings.Join(i.SIMD, " ")
	}
	fmt.Fprintf(&sb, "SIMD:       %s\n", simd)
	return sb.String()
}

// LogValue implements slog.LogValuer.
func (i Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("brand", i.Brand),
		slog.Int("cores", i.PhysicalCores),
		slog.Int("threads", i.LogicalCores),
		slog.String("simd", strings.Join(i.SIMD, ",")),
	)
}

func formatBytes(n int) string {
	switch {
	case n <= 0:
		return "?"
	case n >= 1<<20:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%dKiB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
