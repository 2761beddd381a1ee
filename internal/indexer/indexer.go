// Package indexer drives one translation unit: it receives front-end
// events, consults the file indexing arbiter, resolves symbols via
// the collector, and accumulates a model.TranslationUnitIndex handed
// off at Finish.
package indexer

import (
	"github.com/strandfield/cppscanner-go/internal/arbiter"
	"github.com/strandfield/cppscanner-go/internal/frontend"
	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/symbolcollector"
)

// Indexer owns a TranslationUnitIndex from Initialize through Finish.
// A single Indexer instance is meant to be reused across TUs run by
// the same worker: Initialize resets its state for the next one.
type Indexer struct {
	fileArbiter arbiter.FileIndexingArbiter
	id          uintptr // identity passed to arbiter.Indexer.IndexerID

	collector *symbolcollector.Collector
	index     *model.TranslationUnitIndex

	shouldIndexCache map[model.FileID]bool
}

var _ frontend.EventSink = (*Indexer)(nil)
var _ arbiter.Indexer = (*Indexer)(nil)

// New returns an Indexer gated by fileArbiter. id must be unique
// across the indexers sharing fileArbiter within one Scanner run (the
// worker index is a natural choice).
func New(fileArbiter arbiter.FileIndexingArbiter, id uintptr) *Indexer {
	return &Indexer{fileArbiter: fileArbiter, id: id}
}

// IndexerID implements arbiter.Indexer.
func (idx *Indexer) IndexerID() uintptr { return idx.id }

// Initialize starts a new translation unit rooted at mainFileID.
func (idx *Indexer) Initialize(mainFileID model.FileID) {
	idx.index = model.NewTranslationUnitIndex()
	idx.index.MainFileID = mainFileID
	idx.collector = symbolcollector.New(idx.index)
	idx.shouldIndexCache = make(map[model.FileID]bool)
}

// CurrentIndex returns the in-progress index, or nil before Initialize
// or after the result has been taken by Finish.
func (idx *Indexer) CurrentIndex() *model.TranslationUnitIndex {
	return idx.index
}

// Fail abandons the current TU, producing the error-tagged index the
// scanner logs and skips per the specification's failure semantics.
func (idx *Indexer) Fail(mainFileID model.FileID) *model.TranslationUnitIndex {
	return &model.TranslationUnitIndex{MainFileID: mainFileID, IsError: true}
}

// shouldIndex consults the arbiter, caching the decision for the
// remainder of this TU.
func (idx *Indexer) shouldIndex(file model.FileID) bool {
	if v, ok := idx.shouldIndexCache[file]; ok {
		return v
	}
	v := idx.fileArbiter.ShouldIndex(file, idx)
	idx.shouldIndexCache[file] = v
	return v
}

// OnDecl implements frontend.EventSink.
func (idx *Indexer) OnDecl(occ frontend.DeclOccurrence) {
	if !idx.shouldIndex(occ.Location.FileID) {
		return
	}

	sym := idx.collector.Process(toDeclInput(occ.Decl))
	if sym == nil {
		// USR generation failure: silently skip, per spec 7.
		return
	}

	ref := model.SymbolReference{
		SymbolID: sym.ID,
		FileID:   occ.Location.FileID,
		Position: occ.Location.Position,
		Flags:    occ.Roles,
	}
	if occ.EnclosingFunctionUSR != "" {
		ref.ReferencedBySymbolID = model.SymbolIDFromUSR(occ.EnclosingFunctionUSR)
	}
	idx.index.AddReference(ref)

	if model.HasRefFlag(occ.Roles, model.RefDeclaration) || model.HasRefFlag(occ.Roles, model.RefDefinition) {
		idx.index.AddDeclaration(model.SymbolDeclaration{
			SymbolID:      sym.ID,
			FileID:        occ.Location.FileID,
			StartPosition: occ.Decl.StartPosition,
			EndPosition:   occ.Decl.EndPosition,
			IsDefinition:  occ.Decl.IsDefinition,
		})
	}

	idx.processRelations(sym, occ)
}

func (idx *Indexer) processRelations(sym *model.Symbol, occ frontend.DeclOccurrence) {
	for _, rel := range occ.Relations {
		targetID := model.SymbolIDFromUSR(rel.TargetUSR)
		if !targetID.IsValid() {
			continue
		}
		switch rel.Kind {
		case frontend.RelationBaseOf:
			idx.index.AddBaseOf(model.BaseOf{BaseClassID: targetID, DerivedClassID: sym.ID, Access: rel.Access})
		case frontend.RelationOverrideOf:
			idx.index.AddOverride(model.Override{OverrideMethodID: sym.ID, BaseMethodID: targetID})
			sym.Flags |= int(model.FlagFunctionOverride)
		}
	}
}

// OnMacro implements frontend.EventSink.
func (idx *Indexer) OnMacro(occ frontend.MacroOccurrence) {
	if !idx.shouldIndex(occ.Location.FileID) {
		return
	}

	sym := idx.collector.ProcessMacro(symbolcollector.MacroInput{
		Name:        occ.Name,
		FileID:      occ.Location.FileID,
		Line:        occ.Location.Position.Line(),
		Definition:  occ.Definition,
		IsInProject: occ.IsInProject,
	})
	if sym == nil {
		return
	}

	idx.index.AddReference(model.SymbolReference{
		SymbolID: sym.ID,
		FileID:   occ.Location.FileID,
		Position: occ.Location.Position,
		Flags:    occ.Roles,
	})
}

// OnModule implements frontend.EventSink. Modules are acknowledged but
// not indexed in this revision (see spec Non-goals).
func (idx *Indexer) OnModule(string, frontend.Location) {}

// OnDiagnostic implements frontend.EventSink.
func (idx *Indexer) OnDiagnostic(occ frontend.DiagnosticOccurrence) {
	if occ.Location.FileID.IsValid() && !idx.shouldIndex(occ.Location.FileID) {
		return
	}

	idx.index.AddDiagnostic(model.Diagnostic{
		Level:    occ.Level,
		FileID:   occ.Location.FileID,
		Position: occ.Location.Position,
		Message:  occ.Message,
	})
}

// Finish implements frontend.EventSink: it records the includes and
// reference-argument call sites the front end discovered while
// sweeping the whole TU, promotes macros that turned out to be header
// guards, and returns the completed index.
func (idx *Indexer) Finish(includes []frontend.IncludeOccurrence, callArgs []frontend.CallArgumentOccurrence) *model.TranslationUnitIndex {
	if idx.index == nil {
		return nil
	}
	for _, inc := range includes {
		if !idx.shouldIndex(inc.FileID) {
			continue
		}
		idx.index.AddInclude(model.Include{FileID: inc.FileID, Line: inc.Line, IncludedFileID: inc.IncludedFileID})
	}

	for _, ca := range callArgs {
		if !idx.shouldIndex(ca.Location.FileID) {
			continue
		}
		idx.index.AddRefArg(model.ArgumentPassedByReference{FileID: ca.Location.FileID, Position: ca.Location.Position})
	}

	idx.markHeaderGuards()

	finished := idx.index
	idx.index = nil
	return finished
}

// markHeaderGuards sets FlagMacroUsedAsHeaderGuard on every macro
// symbol of the TU whose captured definition is empty (see
// isHeaderGuardDefinition). It does not look for an enclosing #ifndef
// and does not track #undef, so any empty-bodied macro is marked.
func (idx *Indexer) markHeaderGuards() {
	for _, sym := range idx.index.Symbols {
		if sym.Kind != model.KindMacro {
			continue
		}
		if isHeaderGuardDefinition(sym.Macro.Definition) {
			sym.Flags |= int(model.FlagMacroUsedAsHeaderGuard)
		}
	}
}

// isHeaderGuardDefinition reports whether a macro's captured
// definition text looks like a header-guard token: the front end
// records an empty definition body for pure #ifndef/#define guards
// (no replacement text), which is the signal used here.
func isHeaderGuardDefinition(definition string) bool {
	return definition == ""
}

func toDeclInput(d frontend.DeclIdentity) symbolcollector.DeclInput {
	params := make([]symbolcollector.ParamSpelling, len(d.ParamTypes))
	for i, t := range d.ParamTypes {
		params[i] = symbolcollector.ParamSpelling{Type: t}
	}
	return symbolcollector.DeclInput{
		USR:                  d.USR,
		Kind:                 d.Kind,
		Name:                 d.Name,
		ParentUSR:            d.ParentUSR,
		IsScopedEnum:         d.IsScopedEnum,
		IsOverloadedOperator: d.IsOverloadedOperator,
		IsInlineNamespace:    d.IsInlineNamespace,
		IsAnonymous:          d.IsAnonymous,
		IsLambda:             d.IsLambda,
		Params:               params,
		ReturnType:            d.ReturnType,
		IsConst:               d.IsConst,
		IsNoexcept:            d.IsNoexcept,
		Flags:                 d.Flags,
		IsInProject:           d.IsInProject,
	}
}
