// Package symbolcollector turns front-end declaration and macro events
// into SymbolID-keyed model.Symbol records: computing the stable id
// from a USR, creating the record on first sight, and leaving it
// untouched on every later occurrence within the same translation
// unit.
package symbolcollector

import (
	"fmt"
	"strings"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// DeclInput is everything the front-end collaborator must already have
// resolved about a declaration before handing it to the collector: USR
// computation, pretty-printing, and DeclContext walking are front-end
// concerns the Go side cannot perform without its own semantic model.
type DeclInput struct {
	USR       string
	Kind      model.SymbolKind
	Name      string // unqualified, undecorated spelling
	ParentUSR string

	IsScopedEnum      bool // enum class
	IsOverloadedOperator bool
	IsInlineNamespace bool
	IsAnonymous       bool // anonymous struct/union, or a lambda
	IsLambda          bool

	Params       []ParamSpelling
	ReturnType   string
	IsConst      bool
	IsNoexcept   bool

	Extra model.Symbol // pre-filled kind-specific payload fields; only the matching union member is read

	Flags         int // kind-specific flags already decided by the front end (const, static, virtual, ...)
	IsInProject   bool
}

// ParamSpelling is one function parameter's pretty-printed type, used
// both to build the decorated function name and to fill Parameter
// symbols' extra info.
type ParamSpelling struct {
	Type string
}

// Collector resolves USRs to symbols within one translation unit.
type Collector struct {
	index *model.TranslationUnitIndex
}

// New returns a Collector writing into index.
func New(index *model.TranslationUnitIndex) *Collector {
	return &Collector{index: index}
}

// Process implements the "process(decl) -> &mut IndexerSymbol"
// contract: on first sight of usr, a Symbol is built from in and
// cached; subsequent calls with the same usr return the cached record
// unchanged (later TUs may still OR-merge flags via Symbol.MergeFlags,
// but that happens at aggregation time, not here).
func (c *Collector) Process(in DeclInput) *model.Symbol {
	id := model.SymbolIDFromUSR(in.USR)
	if !id.IsValid() {
		return nil
	}

	if existing := c.index.GetSymbol(id); existing != nil {
		return existing
	}

	kind := normalizeKind(in)
	name := synthesizeName(id, kind, in)

	sym := c.index.GetOrCreateSymbol(id, kind, name)
	sym.ParentID = model.SymbolIDFromUSR(in.ParentUSR)
	sym.Flags = in.Flags
	if in.IsInProject {
		sym.Flags |= int(model.FlagFromProject)
	}

	sym.Macro = in.Extra.Macro
	sym.NamespaceAlias = in.Extra.NamespaceAlias
	sym.Enum = in.Extra.Enum
	sym.EnumConstant = in.Extra.EnumConstant
	sym.Variable = in.Extra.Variable

	if kind.IsFunctionLike() || kind.IsMethodLike() {
		sym.Function = model.FunctionInfo{ReturnType: in.ReturnType}
	}
	if len(in.Params) > 0 {
		sym.Parameter = in.Extra.Parameter
	}

	return sym
}

// MacroInput carries a macro definition occurrence.
type MacroInput struct {
	Name       string
	FileID     model.FileID
	Line       int
	Definition string
	IsInProject bool
}

// MacroUSR derives a USR-equivalent identity for a macro from
// (name, file, line) of its definition, per the specification: macros
// have no USR of their own so the collector manufactures a stable one.
func MacroUSR(name string, fileID model.FileID, line int) string {
	return fmt.Sprintf("macro:%s@%d:%d", name, fileID, line)
}

// ProcessMacro implements the macro variant of the process contract.
func (c *Collector) ProcessMacro(in MacroInput) *model.Symbol {
	usr := MacroUSR(in.Name, in.FileID, in.Line)
	id := model.SymbolIDFromUSR(usr)
	if !id.IsValid() {
		return nil
	}

	if existing := c.index.GetSymbol(id); existing != nil {
		return existing
	}

	sym := c.index.GetOrCreateSymbol(id, model.KindMacro, in.Name)
	sym.Macro.Definition = in.Definition
	if isFunctionLikeMacro(in.Definition) {
		sym.Flags |= int(model.FlagMacroFunctionLike)
	}
	if in.IsInProject {
		sym.Flags |= int(model.FlagFromProject)
	}
	return sym
}

func isFunctionLikeMacro(definition string) bool {
	// A function-like macro's definition, as captured by the front end,
	// begins with the macro name immediately followed by "(" (no space),
	// e.g. "MAX(a,b) (...)" vs the object-like "VALUE 42".
	i := strings.IndexAny(definition, " (")
	return i >= 0 && definition[i] == '('
}

// normalizeKind applies the front-end-mapping collapses described by
// the specification: scoped enums, overloaded operators, inline
// namespaces, and the Protocol/Union/Class collapse (the latter is the
// front end's responsibility to have already picked a snapshot-level
// kind; here we only apply the collapses that depend on modifiers the
// front end reports separately from Kind).
func normalizeKind(in DeclInput) model.SymbolKind {
	kind := in.Kind

	switch {
	case in.IsScopedEnum && kind == model.KindEnum:
		kind = model.KindEnumClass
	case in.IsOverloadedOperator && (kind == model.KindFunction || kind == model.KindMethod):
		kind = model.KindOperator
	case in.IsInlineNamespace && kind == model.KindNamespace:
		kind = model.KindInlineNamespace
	}

	return kind
}

// synthesizeName builds the canonical display name for a symbol,
// applying the function parameter-list decoration and the anonymous /
// lambda hex-naming scheme.
func synthesizeName(id model.SymbolID, kind model.SymbolKind, in DeclInput) string {
	if in.IsLambda {
		return "__lambda_" + id.ToHex()
	}
	if in.IsAnonymous {
		switch kind {
		case model.KindUnion:
			return "__anonymous_union_" + id.ToHex()
		default:
			return "__anonymous_struct_" + id.ToHex()
		}
	}

	if !kind.IsFunctionLike() && !kind.IsMethodLike() {
		return in.Name
	}

	var b strings.Builder
	b.WriteString(in.Name)
	b.WriteByte('(')
	for i, p := range in.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(canonicalizeParamType(p.Type))
	}
	b.WriteByte(')')
	if in.IsConst {
		b.WriteString(" const")
	}
	if in.IsNoexcept {
		b.WriteString(" noexcept")
	}
	return b.String()
}

// canonicalizeParamType strips a single space before a reference
// sigil, so "int &" and "int&" collapse to the same decorated name.
func canonicalizeParamType(t string) string {
	t = strings.Replace(t, " &&", "&&", 1)
	t = strings.Replace(t, " &", "&", 1)
	return t
}
