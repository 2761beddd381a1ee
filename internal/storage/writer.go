package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// Writer inserts or updates rows of an already-opened snapshot
// database. It holds no transaction of its own: callers (principally
// the aggregator) wrap related calls in their own transaction-per-step
// boundaries.
type Writer struct {
	db *sql.DB
}

// NewWriter wraps an already-opened database.
func NewWriter(db *sql.DB) *Writer { return &Writer{db: db} }

// SetInfo upserts one info row.
func (w *Writer) SetInfo(ctx context.Context, key, value string) error {
	_, err := w.db.ExecContext(ctx, "INSERT OR REPLACE INTO info(key, value) VALUES(?, ?)", key, value)
	return err
}

// DeleteInfo removes an info row, used when a merge discovers
// disagreeing project.home values.
func (w *Writer) DeleteInfo(ctx context.Context, key string) error {
	_, err := w.db.ExecContext(ctx, "DELETE FROM info WHERE key = ?", key)
	return err
}

// InsertFile inserts a file row, ignoring the call if the id already
// exists.
func (w *Writer) InsertFile(ctx context.Context, f model.File) error {
	var content, sha1 interface{}
	if f.Content != "" {
		content = f.Content
	}
	if f.HasSHA1 {
		sha1 = f.SHA1
	}
	_, err := w.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO file(id, path, content, sha1) VALUES(?, ?, ?, ?)",
		int(f.ID), f.Path, content, sha1)
	return err
}

// InsertIncludes bulk-inserts include rows for one file, ignoring
// duplicates under (file_id,line,included_file_id).
func (w *Writer) InsertIncludes(ctx context.Context, tx *sql.Tx, includes []model.Include) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO include(file_id, line, included_file_id) VALUES(?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, inc := range includes {
		if _, err := stmt.ExecContext(ctx, int(inc.FileID), inc.Line, int(inc.IncludedFileID)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteIncludesForFile removes every include row whose file_id
// matches fileID, used to implement the aggregator's "union then
// delete-and-reinsert" step for a file seen by more than one TU.
func (w *Writer) DeleteIncludesForFile(ctx context.Context, tx *sql.Tx, fileID model.FileID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM include WHERE file_id = ?", int(fileID))
	return err
}

// InsertSymbol inserts a new symbol row plus its kind-specific extra
// info. Callers must have already checked the symbol is new: this uses
// plain INSERT (not OR IGNORE) so a duplicate id is a programmer
// error, not a silently-dropped write.
func (w *Writer) InsertSymbol(ctx context.Context, tx *sql.Tx, s *model.Symbol) error {
	var parent interface{}
	if s.ParentID.IsValid() {
		parent = int64(s.ParentID)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO symbol(id, kind, parent, name, flags) VALUES(?, ?, ?, ?, ?)",
		int64(s.ID), int(s.Kind), parent, s.Name, s.Flags); err != nil {
		return fmt.Errorf("insert symbol %s: %w", s.Name, err)
	}
	return w.replaceSymbolExtraInfo(ctx, tx, s)
}

// UpdateSymbolFlags overwrites flags for an existing symbol, used by
// the aggregator's OR-merge pass.
func (w *Writer) UpdateSymbolFlags(ctx context.Context, tx *sql.Tx, id model.SymbolID, flags int) error {
	_, err := tx.ExecContext(ctx, "UPDATE symbol SET flags = ? WHERE id = ?", flags, int64(id))
	return err
}

// ReplaceSymbolExtraInfo upserts just the kind-specific extra-info row
// for s, without touching the base symbol row. Used by the merger,
// which re-derives the extra-info tables with last-writer-wins
// semantics after the base symbol rows have already been merged.
func (w *Writer) ReplaceSymbolExtraInfo(ctx context.Context, tx *sql.Tx, s *model.Symbol) error {
	return w.replaceSymbolExtraInfo(ctx, tx, s)
}

func (w *Writer) replaceSymbolExtraInfo(ctx context.Context, tx *sql.Tx, s *model.Symbol) error {
	id := int64(s.ID)
	var err error
	switch {
	case s.Kind == model.KindMacro:
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO macroInfo(symbol_id, definition) VALUES(?, ?)", id, s.Macro.Definition)
	case s.Kind == model.KindNamespaceAlias:
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO namespaceAliasInfo(symbol_id, target) VALUES(?, ?)", id, s.NamespaceAlias.Target)
	case s.Kind == model.KindEnum || s.Kind == model.KindEnumClass:
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO enumInfo(symbol_id, underlyingType) VALUES(?, ?)", id, s.Enum.UnderlyingType)
	case s.Kind == model.KindEnumConstant:
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO enumConstantInfo(symbol_id, value, expression) VALUES(?, ?, ?)", id, s.EnumConstant.Value, s.EnumConstant.Expression)
	case s.Kind.IsFunctionLike():
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO functionInfo(symbol_id, returnType) VALUES(?, ?)", id, s.Function.ReturnType)
	case s.Kind == model.KindParameter || s.Kind == model.KindTemplateTypeParameter ||
		s.Kind == model.KindTemplateTemplateParameter || s.Kind == model.KindNonTypeTemplateParameter:
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO parameterInfo(symbol_id, parameterIndex, type, defaultValue) VALUES(?, ?, ?, ?)",
			id, s.Parameter.ParameterIndex, s.Parameter.Type, s.Parameter.DefaultValue)
	case s.Kind == model.KindVariable || s.Kind == model.KindField || s.Kind == model.KindStaticProperty:
		_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO variableInfo(symbol_id, type, init) VALUES(?, ?, ?)", id, s.Variable.Type, s.Variable.Init)
	}
	return err
}

// InsertReferences bulk-inserts symbol reference rows, ignoring
// duplicates under (file_id,line,col,symbol_id).
func (w *Writer) InsertReferences(ctx context.Context, tx *sql.Tx, refs []model.SymbolReference) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO symbolReference(symbol_id, file_id, line, col, parent_symbol_id, flags) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range refs {
		var parent interface{}
		if r.ReferencedBySymbolID.IsValid() {
			parent = int64(r.ReferencedBySymbolID)
		}
		if _, err := stmt.ExecContext(ctx, int64(r.SymbolID), int(r.FileID), r.Position.Line(), r.Position.Column(), parent, r.Flags); err != nil {
			return err
		}
	}
	return nil
}

// DeleteReferencesForFile removes every reference row for fileID.
func (w *Writer) DeleteReferencesForFile(ctx context.Context, tx *sql.Tx, fileID model.FileID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM symbolReference WHERE file_id = ?", int(fileID))
	return err
}

// InsertDeclarations bulk-inserts declaration rows.
func (w *Writer) InsertDeclarations(ctx context.Context, tx *sql.Tx, decls []model.SymbolDeclaration) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO symbolDeclaration(symbol_id, file_id, startPosition, endPosition, isDefinition) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range decls {
		isDef := 0
		if d.IsDefinition {
			isDef = 1
		}
		if _, err := stmt.ExecContext(ctx, int64(d.SymbolID), int(d.FileID), d.StartPosition.Bits(), d.EndPosition.Bits(), isDef); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDeclarationsForFile removes every declaration row for fileID.
func (w *Writer) DeleteDeclarationsForFile(ctx context.Context, tx *sql.Tx, fileID model.FileID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM symbolDeclaration WHERE file_id = ?", int(fileID))
	return err
}

// InsertBaseOfs bulk-inserts baseOf rows.
func (w *Writer) InsertBaseOfs(ctx context.Context, tx *sql.Tx, rows []model.BaseOf) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO baseOf(baseClassID, derivedClassID, access) VALUES(?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, int64(r.BaseClassID), int64(r.DerivedClassID), int(r.Access)); err != nil {
			return err
		}
	}
	return nil
}

// InsertOverrides bulk-inserts override rows.
func (w *Writer) InsertOverrides(ctx context.Context, tx *sql.Tx, rows []model.Override) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO override(overrideMethodID, baseMethodID) VALUES(?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, int64(r.OverrideMethodID), int64(r.BaseMethodID)); err != nil {
			return err
		}
	}
	return nil
}

// InsertDiagnostics bulk-inserts diagnostic rows, deduplicated per
// file by the caller (diagnostic has no natural unique key beyond
// exact equality, so dedup happens in model.TranslationUnitIndex
// territory, not via a SQL constraint here).
func (w *Writer) InsertDiagnostics(ctx context.Context, tx *sql.Tx, rows []model.Diagnostic) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO diagnostic(level, fileID, line, col, message) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, d := range rows {
		var fileID interface{}
		var line, col interface{}
		if d.FileID.IsValid() {
			fileID = int(d.FileID)
			line = d.Position.Line()
			col = d.Position.Column()
		}
		if _, err := stmt.ExecContext(ctx, int(d.Level), fileID, line, col, d.Message); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDiagnosticsForFile removes every diagnostic row for fileID.
func (w *Writer) DeleteDiagnosticsForFile(ctx context.Context, tx *sql.Tx, fileID model.FileID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM diagnostic WHERE fileID = ?", int(fileID))
	return err
}

// InsertRefArgs bulk-inserts argumentPassedByReference rows.
func (w *Writer) InsertRefArgs(ctx context.Context, tx *sql.Tx, rows []model.ArgumentPassedByReference) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO argumentPassedByReference(file_id, line, col) VALUES(?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range rows {
		if _, err := stmt.ExecContext(ctx, int(a.FileID), a.Position.Line(), a.Position.Column()); err != nil {
			return err
		}
	}
	return nil
}

// BeginTx starts a transaction; callers must Commit or Rollback.
func (w *Writer) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return w.db.BeginTx(ctx, nil)
}
