// Package frontend defines the event-sink contract a C++ front end
// must drive to feed the indexing pipeline. The interface replaces the
// visitor-base-class inheritance of a libclang-based implementation
// with four plain methods; a concrete front end (see
// internal/frontend/treesitter) calls these in whatever order it
// discovers declarations, macros, and diagnostics in one translation
// unit.
package frontend

import (
	"context"

	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/model"
)

// Location is a source position already resolved to a cppscanner
// FileID by the front end (it knows which FileIdentificator the run
// uses).
type Location struct {
	FileID   model.FileID
	Position model.FilePosition
}

// RelationKind classifies a relation attached to a decl occurrence.
type RelationKind int

const (
	RelationBaseOf RelationKind = iota
	RelationOverrideOf
)

// Relation is one edge reported alongside a decl occurrence: either
// "this class is a base of that class" or "this method overrides that
// method".
type Relation struct {
	Kind   RelationKind
	TargetUSR string
	// Access is only meaningful for RelationBaseOf: the access
	// specifier of the base-clause that contains Location.
	Access model.AccessSpecifier
}

// DeclOccurrence is one occurrence of a declaration: either the
// declaration's own defining/non-defining appearance, or a later
// reference to it (a read, write, call, ...).
type DeclOccurrence struct {
	Decl     DeclIdentity
	Roles    int // ReferenceFlag bits
	Relations []Relation
	Location Location
	// EnclosingFunctionUSR is the USR of the function/method lexically
	// containing Location, if any.
	EnclosingFunctionUSR string
}

// DeclIdentity is everything the SymbolCollector needs to resolve or
// create the backing Symbol for a declaration. It is produced by the
// front end once per declaration it sees and threaded through every
// occurrence of that declaration.
type DeclIdentity struct {
	USR  string
	Kind model.SymbolKind
	Name string

	ParentUSR string

	IsScopedEnum         bool
	IsOverloadedOperator bool
	IsInlineNamespace    bool
	IsAnonymous          bool
	IsLambda             bool

	ParamTypes []string
	ReturnType string
	IsConst    bool
	IsNoexcept bool

	Flags       int
	IsInProject bool

	// StartPosition/EndPosition/IsDefinition are only meaningful when
	// Roles includes Declaration or Definition: they describe the
	// declaration's own extent, recorded as a SymbolDeclaration row.
	StartPosition model.FilePosition
	EndPosition   model.FilePosition
	IsDefinition  bool
}

// MacroOccurrence is one occurrence of a macro: its definition, an
// expansion, an #undef, or #ifdef-style test.
type MacroOccurrence struct {
	Name       string
	Definition string // only populated on Roles&Definition
	Roles      int    // ReferenceFlag bits
	Location   Location
	IsInProject bool
}

// DiagnosticOccurrence is one compiler diagnostic.
type DiagnosticOccurrence struct {
	Level    model.DiagnosticLevel
	Message  string
	Location Location // Location.FileID is InvalidFileID for a diagnostic with no associated file
}

// EventSink is the contract an Indexer implements and a front end
// drives. A front end that cannot determine a field leaves it at its
// zero value; the Indexer treats a zero Location.FileID as "not
// locatable" and applies the arbiter decision accordingly.
type EventSink interface {
	OnDecl(DeclOccurrence)
	OnMacro(MacroOccurrence)
	OnModule(name string, loc Location) // acknowledged, not indexed (see spec Non-goals)
	OnDiagnostic(DiagnosticOccurrence)

	// Finish is called once, after the front end has produced every
	// event for this TU. include and callArgs let the front end supply
	// the two sweeps that can only run once the whole TU has been seen.
	// The returned index is nil if Initialize was never called.
	Finish(includes []IncludeOccurrence, callArgs []CallArgumentOccurrence) *model.TranslationUnitIndex
}

// IncludeOccurrence is one #include directive discovered while
// sweeping the preprocessing record at end of TU.
type IncludeOccurrence struct {
	FileID         model.FileID
	Line           int
	IncludedFileID model.FileID
}

// CallArgumentOccurrence marks one call-site argument bound to a
// non-const lvalue reference parameter, discovered by the end-of-TU
// call-expression visit.
type CallArgumentOccurrence struct {
	Location Location
}

// Driver is implemented by a concrete C++ front end (see
// internal/frontend/treesitter) and driven by the Scanner's worker
// pool, one call per translation unit. ids is the FileIdentificator
// shared by the whole run (the same one backing sink's arbiter
// decisions); the front end resolves every Location it reports
// through it, so no remapping is needed once the TU reaches the
// aggregator. Parse drives sink with every decl/macro/module/
// diagnostic event it discovers, then returns the includes and
// reference-argument call sites swept at end of TU; the caller passes
// these to sink.Finish to obtain the completed index. Parse does not
// call sink.Finish itself.
type Driver interface {
	Parse(ctx context.Context, mainFile string, argv []string, ids fileid.FileIdentificator, sink EventSink) ([]IncludeOccurrence, []CallArgumentOccurrence, error)
}
