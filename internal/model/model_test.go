package model

import "testing"

func TestFilePositionRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		line   int
		column int
	}{
		{"origin", 0, 0},
		{"typical", 42, 17},
		{"max line", MaxLine, 3},
		{"max column", 10, MaxColumn},
		{"overflowing line", MaxLine + 100, 1},
		{"overflowing column", 1, MaxColumn + 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFilePosition(tt.line, tt.column)
			roundTripped := FilePositionFromBits(p.Bits())
			if roundTripped != p {
				t.Fatalf("FilePositionFromBits(p.Bits()) = %v, want %v", roundTripped, p)
			}
		})
	}
}

func TestFilePositionSaturates(t *testing.T) {
	p := NewFilePosition(MaxLine+1000, MaxColumn+1000)
	if p.Line() != MaxLine {
		t.Errorf("line = %d, want %d", p.Line(), MaxLine)
	}
	if p.Column() != MaxColumn {
		t.Errorf("column = %d, want %d", p.Column(), MaxColumn)
	}
	if !p.Overflows() {
		t.Error("expected Overflows() to be true")
	}
}

func TestFilePositionOrdering(t *testing.T) {
	a := NewFilePosition(1, 5)
	b := NewFilePosition(1, 9)
	c := NewFilePosition(2, 0)

	if !a.Less(b) {
		t.Error("expected a < b")
	}
	if !b.Less(c) {
		t.Error("expected b < c")
	}
	if c.Less(a) {
		t.Error("did not expect c < a")
	}
}

func TestSymbolIDFromUSR(t *testing.T) {
	a := SymbolIDFromUSR("c:@F@main#")
	b := SymbolIDFromUSR("c:@F@main#")
	c := SymbolIDFromUSR("c:@F@other#")

	if a != b {
		t.Error("same USR must yield the same SymbolID")
	}
	if a == c {
		t.Error("different USRs should (almost always) yield different SymbolIDs")
	}
	if SymbolIDFromUSR("").IsValid() {
		t.Error("empty USR must map to the invalid id")
	}
	if !a.IsValid() {
		t.Error("a non-empty USR must map to a valid id")
	}
}

func TestReferencePureFlagsCover(t *testing.T) {
	tests := []struct {
		name  string
		flags int
		pure  bool
	}{
		{"declaration", int(RefDeclaration), false},
		{"definition", int(RefDefinition), false},
		{"read", int(RefRead), true},
		{"write", int(RefWrite), true},
		{"call", int(RefCall), true},
		{"declaration and call", int(RefDeclaration | RefCall), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SymbolReference{Flags: tt.flags}
			if r.IsPure() != tt.pure {
				t.Errorf("IsPure() = %v, want %v", r.IsPure(), tt.pure)
			}
		})
	}
}

func TestSortAndDeduplicateReferencesPrefersEnclosed(t *testing.T) {
	fid := FileID(1)
	pos := NewFilePosition(10, 4)
	sym := SymbolID(123)

	refs := []SymbolReference{
		{FileID: fid, Position: pos, SymbolID: sym, Flags: int(RefRead)},
		{FileID: fid, Position: pos, SymbolID: sym, Flags: int(RefRead), ReferencedBySymbolID: SymbolID(9)},
	}

	out := SortAndDeduplicateReferences(refs)
	if len(out) != 1 {
		t.Fatalf("expected exactly one row after dedup, got %d", len(out))
	}
	if !out[0].ReferencedBySymbolID.IsValid() {
		t.Error("expected the row with a valid ReferencedBySymbolID to survive dedup")
	}
}

func TestSortAndDeduplicateReferencesIdempotent(t *testing.T) {
	fid := FileID(1)
	refs := []SymbolReference{
		{FileID: fid, Position: NewFilePosition(1, 1), SymbolID: SymbolID(1), Flags: int(RefRead)},
		{FileID: fid, Position: NewFilePosition(1, 1), SymbolID: SymbolID(1), Flags: int(RefRead)},
		{FileID: fid, Position: NewFilePosition(2, 1), SymbolID: SymbolID(2), Flags: int(RefWrite)},
	}

	out := SortAndDeduplicateReferences(refs)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
}

func TestSymbolMergeFlags(t *testing.T) {
	s := &Symbol{Flags: int(FlagLocal)}

	changed := s.MergeFlags(int(FlagFromProject))
	if !changed {
		t.Error("expected MergeFlags to report a change")
	}
	if !s.HasFlag(FlagLocal) || !s.HasFlag(FlagFromProject) {
		t.Error("expected both flags to be set after merge")
	}

	changed = s.MergeFlags(int(FlagLocal))
	if changed {
		t.Error("merging an already-set flag should not report a change")
	}
}
