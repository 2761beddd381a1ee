package model

// SymbolKind classifies a symbol record. Scoped enums are reported as
// EnumClass rather than Enum, overloaded operators as Operator rather
// than Function/Method, and inline namespaces as InlineNamespace rather
// than Namespace; the SymbolCollector performs these kind rewrites once
// the front-end has told it enough to know which one applies.
type SymbolKind int

const (
	KindUnknown SymbolKind = iota

	KindModule
	KindNamespace
	KindInlineNamespace
	KindNamespaceAlias

	KindMacro

	KindEnum
	KindEnumClass
	KindStruct
	KindClass
	KindUnion
	// KindLambda distinguishes a lambda from a "true" class: the
	// front-end reports both as a class (a lambda is sugar for one),
	// but callers usually want to tell them apart.
	KindLambda

	KindTypeAlias

	KindFunction
	KindVariable
	KindField
	KindEnumConstant

	KindMethod
	KindStaticMethod
	KindStaticProperty

	KindConstructor
	KindDestructor
	KindConversionFunction
	KindOperator
	KindParameter

	KindTemplateTypeParameter
	KindTemplateTemplateParameter
	KindNonTypeTemplateParameter

	KindConcept
)

var symbolKindNames = map[SymbolKind]string{
	KindUnknown:                   "unknown",
	KindModule:                    "module",
	KindNamespace:                 "namespace",
	KindInlineNamespace:           "inline-namespace",
	KindNamespaceAlias:            "namespace-alias",
	KindMacro:                     "macro",
	KindEnum:                      "enum",
	KindEnumClass:                 "enum-class",
	KindStruct:                    "struct",
	KindClass:                     "class",
	KindUnion:                     "union",
	KindLambda:                    "lambda",
	KindTypeAlias:                 "type-alias",
	KindFunction:                  "function",
	KindVariable:                  "variable",
	KindField:                     "field",
	KindEnumConstant:              "enum-constant",
	KindMethod:                    "method",
	KindStaticMethod:              "static-method",
	KindStaticProperty:            "static-property",
	KindConstructor:               "constructor",
	KindDestructor:                "destructor",
	KindConversionFunction:        "conversion-function",
	KindOperator:                  "operator",
	KindParameter:                 "parameter",
	KindTemplateTypeParameter:     "template-type-parameter",
	KindTemplateTemplateParameter: "template-template-parameter",
	KindNonTypeTemplateParameter:  "non-type-template-parameter",
	KindConcept:                   "concept",
}

func (k SymbolKind) String() string {
	if s, ok := symbolKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsFunctionLike reports whether the kind carries FunctionInfo-shaped
// extra info (return type, the inline/virtual/... flag family).
func (k SymbolKind) IsFunctionLike() bool {
	switch k {
	case KindFunction, KindMethod, KindStaticMethod, KindConstructor,
		KindDestructor, KindConversionFunction, KindOperator:
		return true
	default:
		return false
	}
}

// IsMethodLike reports whether the kind is a class member function,
// i.e. a candidate endpoint for a BaseOf/Override relation.
func (k SymbolKind) IsMethodLike() bool {
	switch k {
	case KindMethod, KindStaticMethod, KindConstructor, KindDestructor,
		KindConversionFunction, KindOperator:
		return true
	default:
		return false
	}
}

// IsClassLike reports whether the kind can be the base or derived side
// of a BaseOf relation.
func (k SymbolKind) IsClassLike() bool {
	switch k {
	case KindStruct, KindClass, KindUnion, KindLambda:
		return true
	default:
		return false
	}
}

// AccessSpecifier is the visibility of a class member or base class.
type AccessSpecifier int

const (
	AccessInvalid AccessSpecifier = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

var accessSpecifierNames = map[AccessSpecifier]string{
	AccessPublic:    "public",
	AccessProtected: "protected",
	AccessPrivate:   "private",
}

func (a AccessSpecifier) String() string {
	if s, ok := accessSpecifierNames[a]; ok {
		return s
	}
	return "invalid"
}

// DiagnosticLevel is the severity of a compiler diagnostic.
type DiagnosticLevel int

const (
	DiagnosticIgnored DiagnosticLevel = iota
	DiagnosticNote
	DiagnosticRemark
	DiagnosticWarning
	DiagnosticError
	DiagnosticFatal
)

var diagnosticLevelNames = map[DiagnosticLevel]string{
	DiagnosticIgnored: "ignored",
	DiagnosticNote:    "note",
	DiagnosticRemark:  "remark",
	DiagnosticWarning: "warning",
	DiagnosticError:   "error",
	DiagnosticFatal:   "fatal",
}

func (l DiagnosticLevel) String() string {
	if s, ok := diagnosticLevelNames[l]; ok {
		return s
	}
	return "ignored"
}
