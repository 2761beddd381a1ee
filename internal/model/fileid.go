// Package model defines the data shared by every stage of the pipeline:
// file and symbol identity, references, relations, diagnostics, and the
// per-translation-unit accumulator that the Indexer fills in and the
// SnapshotAggregator folds into the growing snapshot.
package model

// FileID is a dense, process-local (or, once read back from disk,
// snapshot-local) integer identifying a file. Zero is reserved for
// "invalid" and is never issued by a FileIdentificator.
type FileID uint32

// InvalidFileID is the zero value, meaning "no file".
const InvalidFileID FileID = 0

// IsValid reports whether id was actually issued by a FileIdentificator.
func (id FileID) IsValid() bool {
	return id != InvalidFileID
}
