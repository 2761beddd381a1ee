package model

// SymbolReference is a single occurrence of a symbol at (FileID,
// Position), optionally enclosed by the symbol of the function/method
// containing it.
type SymbolReference struct {
	SymbolID             SymbolID
	FileID               FileID
	Position             FilePosition
	ReferencedBySymbolID SymbolID
	Flags                int
}

// Key returns the per-file dedup key: (fileID, position, symbolID) must
// be unique within one file's references.
func (r SymbolReference) Key() ReferenceKey {
	return ReferenceKey{FileID: r.FileID, Position: r.Position, SymbolID: r.SymbolID}
}

// ReferenceKey is the uniqueness key for SymbolReference rows in a
// per-file view.
type ReferenceKey struct {
	FileID   FileID
	Position FilePosition
	SymbolID SymbolID
}

// IsPure reports whether the reference is neither a declaration nor a
// definition.
func (r SymbolReference) IsPure() bool {
	return IsPureReference(r.Flags)
}

// SymbolDeclaration records one declaration (or definition) of a symbol.
// A symbol is expected to have several of these.
type SymbolDeclaration struct {
	SymbolID      SymbolID
	FileID        FileID
	StartPosition FilePosition
	EndPosition   FilePosition
	IsDefinition  bool
}

// DeclarationKey is the uniqueness key for SymbolDeclaration rows in a
// per-file view.
type DeclarationKey struct {
	SymbolID      SymbolID
	StartPosition FilePosition
	EndPosition   FilePosition
	IsDefinition  bool
}

func (d SymbolDeclaration) Key() DeclarationKey {
	return DeclarationKey{
		SymbolID:      d.SymbolID,
		StartPosition: d.StartPosition,
		EndPosition:   d.EndPosition,
		IsDefinition:  d.IsDefinition,
	}
}

// Include records one textual #include directive.
type Include struct {
	FileID         FileID
	Line           int
	IncludedFileID FileID
}

// IncludeKey is the uniqueness key for Include rows in a per-file view.
type IncludeKey struct {
	FileID         FileID
	Line           int
	IncludedFileID FileID
}

func (i Include) Key() IncludeKey {
	return IncludeKey{FileID: i.FileID, Line: i.Line, IncludedFileID: i.IncludedFileID}
}

// BaseOf is a "base of" relation between two classes. Unique per
// (BaseClassID, DerivedClassID).
type BaseOf struct {
	BaseClassID    SymbolID
	DerivedClassID SymbolID
	Access         AccessSpecifier
}

// Override is an "overrides" relation between two member functions.
// Unique per OverrideMethodID (one base method per override).
type Override struct {
	OverrideMethodID SymbolID
	BaseMethodID     SymbolID
}

// Diagnostic is a single compiler diagnostic.
type Diagnostic struct {
	Level    DiagnosticLevel
	FileID   FileID
	Position FilePosition
	Message  string
}

// DiagnosticKey is the uniqueness key for Diagnostic rows in a per-file
// view.
type DiagnosticKey struct {
	Level    DiagnosticLevel
	Position FilePosition
	Message  string
}

func (d Diagnostic) Key() DiagnosticKey {
	return DiagnosticKey{Level: d.Level, Position: d.Position, Message: d.Message}
}

// ArgumentPassedByReference marks a call-site argument position bound
// to a non-const lvalue reference parameter.
type ArgumentPassedByReference struct {
	FileID   FileID
	Position FilePosition
}

// File is a file known to the snapshot. Content and SHA1 are only
// captured for files "belonging to the project" (see Scanner.home).
type File struct {
	ID      FileID
	Path    string
	Content string
	HasSHA1 bool
	SHA1    string
}
