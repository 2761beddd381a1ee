package model

// SymbolFlag bits are kind-independent and occupy the low bits of a
// symbol's flags; kind-specific flags (FunctionFlag, VariableFlag, ...)
// reuse the higher bits starting at MinCustomFlag. A merged snapshot's
// flags for a symbol are the bitwise OR of every flag contributed by
// every TU that observed it.
type SymbolFlag int

const (
	FlagLocal       SymbolFlag = 0x0001
	FlagFromProject SymbolFlag = 0x0002
	FlagProtected   SymbolFlag = 0x0004
	FlagPrivate     SymbolFlag = 0x0008

	// MinCustomFlag is the first bit available to kind-specific flags.
	MinCustomFlag SymbolFlag = 0x0020
)

// HasFlag reports whether f is set in flags.
func HasFlag(flags int, f SymbolFlag) bool {
	return flags&int(f) != 0
}

// MacroFlag bits, starting at MinCustomFlag.
const (
	FlagMacroUsedAsHeaderGuard = SymbolFlag(MinCustomFlag) << 0
	FlagMacroFunctionLike      = SymbolFlag(MinCustomFlag) << 1
)

// VariableFlag bits (Variable, Field, StaticProperty), starting at MinCustomFlag.
const (
	FlagVariableConst       = SymbolFlag(MinCustomFlag) << 0
	FlagVariableConstexpr   = SymbolFlag(MinCustomFlag) << 1
	FlagVariableStatic      = SymbolFlag(MinCustomFlag) << 2
	FlagVariableMutable     = SymbolFlag(MinCustomFlag) << 3
	FlagVariableThreadLocal = SymbolFlag(MinCustomFlag) << 4
	FlagVariableInline      = SymbolFlag(MinCustomFlag) << 5
)

// FunctionFlag bits (Function, Method, StaticMethod, Constructor,
// Destructor, ConversionFunction, Operator), starting at MinCustomFlag.
const (
	FlagFunctionInline    = SymbolFlag(MinCustomFlag) << 0
	FlagFunctionStatic    = SymbolFlag(MinCustomFlag) << 1
	FlagFunctionConstexpr = SymbolFlag(MinCustomFlag) << 2
	FlagFunctionConsteval = SymbolFlag(MinCustomFlag) << 3
	FlagFunctionNoexcept  = SymbolFlag(MinCustomFlag) << 4
	FlagFunctionDefault   = SymbolFlag(MinCustomFlag) << 5
	FlagFunctionDelete    = SymbolFlag(MinCustomFlag) << 6
	FlagFunctionConst     = SymbolFlag(MinCustomFlag) << 7
	FlagFunctionVirtual   = SymbolFlag(MinCustomFlag) << 8
	FlagFunctionPure      = SymbolFlag(MinCustomFlag) << 9
	FlagFunctionOverride  = SymbolFlag(MinCustomFlag) << 10
	FlagFunctionFinal     = SymbolFlag(MinCustomFlag) << 11
	FlagFunctionExplicit  = SymbolFlag(MinCustomFlag) << 12
)

// ClassFlag bits (Class, Struct, Union, Lambda), starting at MinCustomFlag.
const (
	FlagClassFinal = SymbolFlag(MinCustomFlag) << 0
)

// ReferenceFlag bits mirror libclang's CXSymbolRole and classify a
// single occurrence of a symbol.
type ReferenceFlag int

const (
	RefDeclaration ReferenceFlag = 1 << 0
	RefDefinition  ReferenceFlag = 1 << 1
	RefRead        ReferenceFlag = 1 << 2
	RefWrite       ReferenceFlag = 1 << 3
	RefCall        ReferenceFlag = 1 << 4
	// RefDynamic marks a declaration or call of a virtual function.
	RefDynamic   ReferenceFlag = 1 << 5
	RefAddressOf ReferenceFlag = 1 << 6
	RefImplicit  ReferenceFlag = 1 << 7
)

var referenceFlagNames = map[ReferenceFlag]string{
	RefDeclaration: "declaration",
	RefDefinition:  "definition",
	RefRead:        "read",
	RefWrite:       "write",
	RefCall:        "call",
	RefDynamic:     "dynamic",
	RefAddressOf:   "addressof",
	RefImplicit:    "implicit",
}

func (f ReferenceFlag) String() string {
	if s, ok := referenceFlagNames[f]; ok {
		return s
	}
	return "invalid"
}

// HasRefFlag reports whether f is set in flags.
func HasRefFlag(flags int, f ReferenceFlag) bool {
	return flags&int(f) != 0
}

// IsPureReference reports whether flags carries neither Declaration nor
// Definition, i.e. it is a plain read/write/call/addressof occurrence.
func IsPureReference(flags int) bool {
	return !HasRefFlag(flags, RefDeclaration) && !HasRefFlag(flags, RefDefinition)
}
