package vm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Statistics accumulates run counters for one simulation
type Statistics struct {
	Cycles        uint64 `json:"cycles"`
	Instructions  uint64 `json:"instructions_retired"`
	Stalls        uint64 `json:"load_use_stalls"`
	Flushes       uint64 `json:"branch_flushes"`
	BranchesTaken uint64 `json:"branches_taken"`
}

// NewStatistics creates a zeroed statistics collector
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Reset zeroes all counters
func (s *Statistics) Reset() {
	*s = Statistics{}
}

// CPI returns cycles per retired instruction
func (s *Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// ExportJSON writes the statistics as indented JSON
func (s *Statistics) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// String returns a human-readable summary
func (s *Statistics) String() string {
	var b strings.Builder
	b.WriteString("Run Statistics\n")
	b.WriteString("==============\n")
	fmt.Fprintf(&b, "Cycles:                %d\n", s.Cycles)
	fmt.Fprintf(&b, "Instructions retired:  %d\n", s.Instructions)
	fmt.Fprintf(&b, "Load-use stalls:       %d\n", s.Stalls)
	fmt.Fprintf(&b, "Branch flushes:        %d\n", s.Flushes)
	fmt.Fprintf(&b, "Branches taken:        %d\n", s.BranchesTaken)
	fmt.Fprintf(&b, "CPI:                   %.2f\n", s.CPI())
	return b.String()
}
