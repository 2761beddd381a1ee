package model

import "sort"

// TranslationUnitIndex is the per-TU accumulator filled in by the
// Indexer and handed to the ResultQueue at TU end. A TU that failed to
// parse is represented by IsError == true with only MainFileID
// populated.
type TranslationUnitIndex struct {
	MainFileID FileID
	IsError    bool

	IndexedFiles map[FileID]struct{}

	Includes []Include

	Symbols map[SymbolID]*Symbol

	References   []SymbolReference
	Declarations []SymbolDeclaration

	BaseOfs    []BaseOf
	Overrides  []Override
	Diagnostics []Diagnostic

	RefArgs []ArgumentPassedByReference
}

// NewTranslationUnitIndex returns an empty, ready-to-fill index.
func NewTranslationUnitIndex() *TranslationUnitIndex {
	return &TranslationUnitIndex{
		IndexedFiles: make(map[FileID]struct{}),
		Symbols:      make(map[SymbolID]*Symbol),
	}
}

// MarkIndexed records that fileID participates in this TU's index,
// mirroring FileIndexingArbiter's "should index" decision.
func (t *TranslationUnitIndex) MarkIndexed(fileID FileID) {
	t.IndexedFiles[fileID] = struct{}{}
}

// IsIndexed reports whether fileID was marked via MarkIndexed.
func (t *TranslationUnitIndex) IsIndexed(fileID FileID) bool {
	_, ok := t.IndexedFiles[fileID]
	return ok
}

// AddInclude appends one #include row.
func (t *TranslationUnitIndex) AddInclude(i Include) {
	t.Includes = append(t.Includes, i)
}

// AddReference appends one symbol occurrence.
func (t *TranslationUnitIndex) AddReference(r SymbolReference) {
	t.References = append(t.References, r)
}

// AddDeclaration appends one symbol declaration.
func (t *TranslationUnitIndex) AddDeclaration(d SymbolDeclaration) {
	t.Declarations = append(t.Declarations, d)
}

// AddBaseOf appends one base-of relation.
func (t *TranslationUnitIndex) AddBaseOf(b BaseOf) {
	t.BaseOfs = append(t.BaseOfs, b)
}

// AddOverride appends one override relation.
func (t *TranslationUnitIndex) AddOverride(o Override) {
	t.Overrides = append(t.Overrides, o)
}

// AddDiagnostic appends one diagnostic.
func (t *TranslationUnitIndex) AddDiagnostic(d Diagnostic) {
	t.Diagnostics = append(t.Diagnostics, d)
}

// AddRefArg appends one reference-parameter call-site annotation.
func (t *TranslationUnitIndex) AddRefArg(a ArgumentPassedByReference) {
	t.RefArgs = append(t.RefArgs, a)
}

// GetOrCreateSymbol returns the existing symbol for id, creating an
// empty record (with the given kind/name) on first sight. This is the
// "process(decl) -> &mut IndexerSymbol" contract from the spec: callers
// mutate the returned pointer in place.
func (t *TranslationUnitIndex) GetOrCreateSymbol(id SymbolID, kind SymbolKind, name string) *Symbol {
	if s, ok := t.Symbols[id]; ok {
		return s
	}
	s := &Symbol{ID: id, Kind: kind, Name: name}
	t.Symbols[id] = s
	return s
}

// GetSymbol looks up a symbol already seen in this TU, or nil.
func (t *TranslationUnitIndex) GetSymbol(id SymbolID) *Symbol {
	return t.Symbols[id]
}

// nbMissingFields scores a reference for dedup priority: a reference
// with a valid ReferencedBySymbolID is preferred (scores 0) over one
// without (scores 1), per spec 4.6 step 6.
func nbMissingFields(r SymbolReference) int {
	if r.ReferencedBySymbolID.IsValid() {
		return 0
	}
	return 1
}

// SortAndDeduplicateReferences sorts references by (fileID, position,
// symbolID) and removes duplicates under that key, preferring the row
// that carries a valid ReferencedBySymbolID when two rows tie.
func SortAndDeduplicateReferences(refs []SymbolReference) []SymbolReference {
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.FileID != b.FileID {
			return a.FileID < b.FileID
		}
		if a.Position != b.Position {
			return a.Position.Bits() < b.Position.Bits()
		}
		if a.SymbolID != b.SymbolID {
			return a.SymbolID < b.SymbolID
		}
		return nbMissingFields(a) < nbMissingFields(b)
	})

	out := refs[:0:0]
	for i, r := range refs {
		if i > 0 {
			prev := refs[i-1]
			if prev.FileID == r.FileID && prev.Position == r.Position && prev.SymbolID == r.SymbolID {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// SortAndDeduplicateRefArgs sorts and deduplicates argument-by-reference
// annotations by (fileID, position).
func SortAndDeduplicateRefArgs(args []ArgumentPassedByReference) []ArgumentPassedByReference {
	sort.Slice(args, func(i, j int) bool {
		a, b := args[i], args[j]
		if a.FileID != b.FileID {
			return a.FileID < b.FileID
		}
		return a.Position.Bits() < b.Position.Bits()
	})

	out := args[:0:0]
	for i, a := range args {
		if i > 0 {
			prev := args[i-1]
			if prev.FileID == a.FileID && prev.Position == a.Position {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// SortAndDeduplicateDeclarations sorts declarations by (fileID,
// startPosition, endPosition, symbolID, isDefinition) and removes exact
// duplicates.
func SortAndDeduplicateDeclarations(decls []SymbolDeclaration) []SymbolDeclaration {
	sort.Slice(decls, func(i, j int) bool {
		a, b := decls[i], decls[j]
		if a.FileID != b.FileID {
			return a.FileID < b.FileID
		}
		if a.StartPosition != b.StartPosition {
			return a.StartPosition.Bits() < b.StartPosition.Bits()
		}
		if a.EndPosition != b.EndPosition {
			return a.EndPosition.Bits() < b.EndPosition.Bits()
		}
		if a.SymbolID != b.SymbolID {
			return a.SymbolID < b.SymbolID
		}
		return !a.IsDefinition && b.IsDefinition
	})

	out := decls[:0:0]
	for i, d := range decls {
		if i > 0 && decls[i-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}
