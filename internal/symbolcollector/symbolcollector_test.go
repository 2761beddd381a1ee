package symbolcollector

import (
	"testing"

	"github.com/strandfield/cppscanner-go/internal/model"
)

func TestProcessCachesOnSecondSight(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)

	first := c.Process(DeclInput{USR: "c:@F@main#", Kind: model.KindFunction, Name: "main"})
	first.Flags |= int(model.FlagLocal)

	second := c.Process(DeclInput{USR: "c:@F@main#", Kind: model.KindVariable, Name: "should-be-ignored"})

	if second != first {
		t.Fatal("expected the cached record to be returned on second sight")
	}
	if second.Kind != model.KindFunction {
		t.Errorf("kind changed on second sight: got %v", second.Kind)
	}
	if !second.HasFlag(model.FlagLocal) {
		t.Error("expected flags set after first Process to survive")
	}
}

func TestProcessDecoratesFunctionName(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)

	sym := c.Process(DeclInput{
		USR:        "c:@F@f#i#",
		Kind:       model.KindFunction,
		Name:       "f",
		Params:     []ParamSpelling{{Type: "int &"}},
		ReturnType: "void",
		IsConst:    false,
	})

	want := "f(int&)"
	if sym.Name != want {
		t.Errorf("Name = %q, want %q", sym.Name, want)
	}
}

func TestProcessLambdaNaming(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)

	sym := c.Process(DeclInput{USR: "c:@lambda@1", Kind: model.KindLambda, IsLambda: true})
	if sym.Name[:9] != "__lambda_" {
		t.Errorf("Name = %q, want __lambda_ prefix", sym.Name)
	}
}

func TestNormalizeKindCollapses(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)

	scoped := c.Process(DeclInput{USR: "c:@E@Color", Kind: model.KindEnum, IsScopedEnum: true, Name: "Color"})
	if scoped.Kind != model.KindEnumClass {
		t.Errorf("expected scoped enum to become EnumClass, got %v", scoped.Kind)
	}

	op := c.Process(DeclInput{USR: "c:@F@operator+#", Kind: model.KindFunction, IsOverloadedOperator: true, Name: "operator+"})
	if op.Kind != model.KindOperator {
		t.Errorf("expected overloaded operator to become Operator, got %v", op.Kind)
	}

	ns := c.Process(DeclInput{USR: "c:@N@inner", Kind: model.KindNamespace, IsInlineNamespace: true, Name: "inner"})
	if ns.Kind != model.KindInlineNamespace {
		t.Errorf("expected inline namespace to become InlineNamespace, got %v", ns.Kind)
	}
}

func TestProcessInvalidUSR(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)
	if sym := c.Process(DeclInput{USR: "", Kind: model.KindFunction}); sym != nil {
		t.Error("expected nil symbol for an empty USR")
	}
}

func TestProcessMacroFunctionLike(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)

	sym := c.ProcessMacro(MacroInput{
		Name:       "MAX",
		FileID:     model.FileID(1),
		Line:       10,
		Definition: "MAX(a,b) ((a)>(b)?(a):(b))",
	})

	if !sym.HasFlag(model.FlagMacroFunctionLike) {
		t.Error("expected function-like macro flag to be set")
	}
}

func TestProcessMacroObjectLike(t *testing.T) {
	idx := model.NewTranslationUnitIndex()
	c := New(idx)

	sym := c.ProcessMacro(MacroInput{
		Name:       "VALUE",
		FileID:     model.FileID(1),
		Line:       5,
		Definition: "VALUE 42",
	})

	if sym.HasFlag(model.FlagMacroFunctionLike) {
		t.Error("object-like macro must not carry the function-like flag")
	}
}

func TestMacroUSRStable(t *testing.T) {
	a := MacroUSR("GUARD", model.FileID(1), 3)
	b := MacroUSR("GUARD", model.FileID(1), 3)
	c := MacroUSR("GUARD", model.FileID(2), 3)

	if a != b {
		t.Error("MacroUSR must be deterministic for the same inputs")
	}
	if a == c {
		t.Error("MacroUSR should differ across files")
	}
}
