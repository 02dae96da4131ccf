// Package sources holds what the source adapters share: the source
// identifiers recorded on import runs, the Batch an adapter hands to the
// engine, and the field parsers both adapters apply to raw values.
//
// The adapters themselves live in the flatfile and remote subpackages.
package sources

import (
	"fmt"
	"slices"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

// ID identifies the adapter an import ran through.
type ID string

// String returns the string representation of a source id.
func (id ID) String() string {
	return string(id)
}

// Known sources.
const (
	FlatFileID ID = "flatfile"
	RemoteID   ID = "remote"
)

// IDs returns all known source ids.
func IDs() []ID {
	return []ID{FlatFileID, RemoteID}
}

// IsValid reports whether id is one of the known sources.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// Skip records an input record the adapter chose not to import.
type Skip struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// String formats the skip for a run log.
func (s Skip) String() string {
	return fmt.Sprintf("skipped %s: %s", s.Ref, s.Reason)
}

// Batch is the complete output of one adapter call.
type Batch struct {
	Source     ID
	Candidates []catalog.Candidate
	Skipped    []Skip
}

// Found returns the number of input records the batch accounts for.
func (b *Batch) Found() int {
	return len(b.Candidates) + len(b.Skipped)
}
