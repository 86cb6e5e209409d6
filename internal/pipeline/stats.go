package pipeline

import (
	"fmt"
	"time"
)

// Stats summarizes a build.
type Stats struct {
	FilesProcessed    int
	FilesSkipped      int
	EntitiesCreated   int
	RelationsCreated  int
	MissingReferences []string
	Cycles            [][]string
	// DuplicateEntities lists names emitted by more than one document, once
	// per repeat.
	DuplicateEntities []string
	// ProfilesByType counts compiled profiles by declared type.
	ProfilesByType map[string]int
	// OutputPath and Bytes are empty for a validation run.
	OutputPath string
	Bytes      int64
	Duration   time.Duration
}

func newStats() *Stats {
	return &Stats{ProfilesByType: make(map[string]int)}
}

// Summary is the one-line report printed after a successful build.
func (s *Stats) Summary() string {
	return fmt.Sprintf("Generated %d entities and %d relations from %d profiles in %dms",
		s.EntitiesCreated, s.RelationsCreated, s.FilesProcessed, s.Duration.Milliseconds())
}

// Warnings returns the number of non-fatal problems the build reported.
func (s *Stats) Warnings() int {
	return s.FilesSkipped + len(s.MissingReferences) + len(s.Cycles) + len(s.DuplicateEntities)
}
