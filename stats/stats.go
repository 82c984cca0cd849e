// Package stats collects execution statistics for an interpreter run:
// per-instruction-kind counts, cycle totals, and a hot-path histogram of
// predecoded-record indices, with JSON and CSV export.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// KindEntry is one row of the instruction-mix breakdown.
type KindEntry struct {
	Kind  string
	Count uint64
}

// HotPathEntry records how many times a given predecoded-record index was
// executed.
type HotPathEntry struct {
	PPC   int
	Count uint64
}

// Collector accumulates execution statistics. The zero value is not
// ready to use; call NewCollector. A nil *Collector is safe to pass to
// Start, Finalize, the Record* methods (which become no-ops) and the
// query methods, so the interpreter's caller can pass one in only when
// --stats is set without branching at every step. ExportJSON, ExportCSV
// and Report need a non-nil Collector.
type Collector struct {
	Enabled bool

	TotalInstructions uint64
	TotalCycles       uint64
	ExecutionTime     time.Duration

	InstructionCounts map[string]uint64
	BranchCount       uint64
	BranchTakenCount  uint64

	MemoryReads  uint64
	MemoryWrites uint64
	BytesRead    uint64
	BytesWritten uint64

	HotPath map[int]uint64

	startTime      time.Time
	collectHotPath bool
}

// NewCollector returns a ready-to-use, enabled Collector.
func NewCollector() *Collector {
	return &Collector{
		Enabled:           true,
		InstructionCounts: make(map[string]uint64),
		HotPath:           make(map[int]uint64),
		collectHotPath:    true,
	}
}

// Start resets all counters and marks the collection window start.
func (c *Collector) Start() {
	if c == nil {
		return
	}
	c.startTime = time.Now()
	c.TotalInstructions = 0
	c.TotalCycles = 0
	c.InstructionCounts = make(map[string]uint64)
	c.BranchCount = 0
	c.BranchTakenCount = 0
	c.MemoryReads = 0
	c.MemoryWrites = 0
	c.BytesRead = 0
	c.BytesWritten = 0
	c.HotPath = make(map[int]uint64)
}

// RecordInstruction records one executed instruction at record index ppc.
func (c *Collector) RecordInstruction(kind string, ppc int) {
	if c == nil || !c.Enabled {
		return
	}
	c.TotalInstructions++
	c.TotalCycles++
	c.InstructionCounts[kind]++
	if c.collectHotPath {
		c.HotPath[ppc]++
	}
}

// RecordBranch records a branch instruction's outcome.
func (c *Collector) RecordBranch(taken bool) {
	if c == nil || !c.Enabled {
		return
	}
	c.BranchCount++
	if taken {
		c.BranchTakenCount++
	}
}

// RecordMemoryRead records a memory load of the given width in bytes.
func (c *Collector) RecordMemoryRead(bytes uint64) {
	if c == nil || !c.Enabled {
		return
	}
	c.MemoryReads++
	c.BytesRead += bytes
}

// RecordMemoryWrite records a memory store of the given width in bytes.
func (c *Collector) RecordMemoryWrite(bytes uint64) {
	if c == nil || !c.Enabled {
		return
	}
	c.MemoryWrites++
	c.BytesWritten += bytes
}

// Finalize stops the collection window and computes derived rates.
func (c *Collector) Finalize() {
	if c == nil {
		return
	}
	c.ExecutionTime = time.Since(c.startTime)
}

// InstructionsPerSecond reports throughput over the finalized window.
func (c *Collector) InstructionsPerSecond() float64 {
	if c == nil || c.ExecutionTime <= 0 {
		return 0
	}
	return float64(c.TotalInstructions) / c.ExecutionTime.Seconds()
}

// TopInstructions returns the n most frequently executed kinds, or all of
// them if n <= 0.
func (c *Collector) TopInstructions(n int) []KindEntry {
	if c == nil {
		return nil
	}
	entries := make([]KindEntry, 0, len(c.InstructionCounts))
	for k, v := range c.InstructionCounts {
		entries = append(entries, KindEntry{Kind: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if n > 0 && n < len(entries) {
		return entries[:n]
	}
	return entries
}

// TopHotPath returns the n most frequently executed record indices, or
// all of them if n <= 0.
func (c *Collector) TopHotPath(n int) []HotPathEntry {
	if c == nil {
		return nil
	}
	entries := make([]HotPathEntry, 0, len(c.HotPath))
	for ppc, count := range c.HotPath {
		entries = append(entries, HotPathEntry{PPC: ppc, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if n > 0 && n < len(entries) {
		return entries[:n]
	}
	return entries
}

// ExportJSON writes a summary report as indented JSON.
func (c *Collector) ExportJSON(w io.Writer) error {
	c.Finalize()
	data := map[string]interface{}{
		"total_instructions":   c.TotalInstructions,
		"total_cycles":         c.TotalCycles,
		"execution_time_ms":    c.ExecutionTime.Milliseconds(),
		"instructions_per_sec": c.InstructionsPerSecond(),
		"branch_count":         c.BranchCount,
		"branch_taken":         c.BranchTakenCount,
		"memory_reads":         c.MemoryReads,
		"memory_writes":        c.MemoryWrites,
		"bytes_read":           c.BytesRead,
		"bytes_written":        c.BytesWritten,
		"top_instructions":     c.TopInstructions(20),
		"hot_path":             c.TopHotPath(20),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes the summary metrics as two-column CSV.
func (c *Collector) ExportCSV(w io.Writer) error {
	c.Finalize()
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	rows := [][]string{
		{"Total Instructions", fmt.Sprintf("%d", c.TotalInstructions)},
		{"Total Cycles", fmt.Sprintf("%d", c.TotalCycles)},
		{"Execution Time (ms)", fmt.Sprintf("%d", c.ExecutionTime.Milliseconds())},
		{"Instructions/Sec", fmt.Sprintf("%.2f", c.InstructionsPerSecond())},
		{"Branch Count", fmt.Sprintf("%d", c.BranchCount)},
		{"Branch Taken", fmt.Sprintf("%d", c.BranchTakenCount)},
		{"Memory Reads", fmt.Sprintf("%d", c.MemoryReads)},
		{"Memory Writes", fmt.Sprintf("%d", c.MemoryWrites)},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Report renders a short human-readable summary, used by the CLI's
// --stats flag when no output file is requested.
func (c *Collector) Report() string {
	c.Finalize()
	top := c.TopInstructions(5)
	s := fmt.Sprintf("instructions=%d cycles=%d time=%s ips=%.0f\n",
		c.TotalInstructions, c.TotalCycles, c.ExecutionTime, c.InstructionsPerSecond())
	if len(top) > 0 {
		s += "top kinds:"
		for _, e := range top {
			s += fmt.Sprintf(" %s=%d", e.Kind, e.Count)
		}
		s += "\n"
	}
	return s
}
