package storage

import (
	"context"
	"database/sql"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// Reader iterates the rows of an already-opened snapshot database.
type Reader struct {
	db *sql.DB
}

// NewReader wraps an already-opened database.
func NewReader(db *sql.DB) *Reader { return &Reader{db: db} }

// ReadInfo returns every info row as a map.
func (r *Reader) ReadInfo(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM info")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ReadFiles returns every file row.
func (r *Reader) ReadFiles(ctx context.Context) ([]model.File, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, path, content, sha1 FROM file")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var id int64
		var path string
		var content, sha1 sql.NullString
		if err := rows.Scan(&id, &path, &content, &sha1); err != nil {
			return nil, err
		}
		out = append(out, model.File{
			ID:      model.FileID(id),
			Path:    path,
			Content: content.String,
			HasSHA1: sha1.Valid,
			SHA1:    sha1.String,
		})
	}
	return out, rows.Err()
}

// ReadIncludes returns every include row.
func (r *Reader) ReadIncludes(ctx context.Context) ([]model.Include, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT file_id, line, included_file_id FROM include")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Include
	for rows.Next() {
		var i model.Include
		var fileID, includedID int64
		if err := rows.Scan(&fileID, &i.Line, &includedID); err != nil {
			return nil, err
		}
		i.FileID = model.FileID(fileID)
		i.IncludedFileID = model.FileID(includedID)
		out = append(out, i)
	}
	return out, rows.Err()
}

// ReadSymbols returns every symbol row along with its kind-specific
// extra info, joined from the matching info table.
func (r *Reader) ReadSymbols(ctx context.Context) ([]*model.Symbol, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, kind, parent, name, flags FROM symbol")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Symbol
	for rows.Next() {
		var id int64
		var kind int
		var parent sql.NullInt64
		var name string
		var flags int
		if err := rows.Scan(&id, &kind, &parent, &name, &flags); err != nil {
			return nil, err
		}
		sym := &model.Symbol{
			ID:    model.SymbolID(id),
			Kind:  model.SymbolKind(kind),
			Name:  name,
			Flags: flags,
		}
		if parent.Valid {
			sym.ParentID = model.SymbolID(parent.Int64)
		}
		out = append(out, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sym := range out {
		if err := r.fillExtraInfo(ctx, sym); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Reader) fillExtraInfo(ctx context.Context, sym *model.Symbol) error {
	switch {
	case sym.Kind == model.KindMacro:
		return r.db.QueryRowContext(ctx, "SELECT definition FROM macroInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.Macro.Definition)
	case sym.Kind == model.KindNamespaceAlias:
		return r.db.QueryRowContext(ctx, "SELECT target FROM namespaceAliasInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.NamespaceAlias.Target)
	case sym.Kind == model.KindEnum || sym.Kind == model.KindEnumClass:
		return ignoreNoRows(r.db.QueryRowContext(ctx, "SELECT underlyingType FROM enumInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.Enum.UnderlyingType))
	case sym.Kind == model.KindEnumConstant:
		return ignoreNoRows(r.db.QueryRowContext(ctx, "SELECT value, expression FROM enumConstantInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.EnumConstant.Value, &sym.EnumConstant.Expression))
	case sym.Kind.IsFunctionLike():
		return ignoreNoRows(r.db.QueryRowContext(ctx, "SELECT returnType FROM functionInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.Function.ReturnType))
	case sym.Kind == model.KindParameter || sym.Kind == model.KindTemplateTypeParameter ||
		sym.Kind == model.KindTemplateTemplateParameter || sym.Kind == model.KindNonTypeTemplateParameter:
		return ignoreNoRows(r.db.QueryRowContext(ctx, "SELECT parameterIndex, type, defaultValue FROM parameterInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.Parameter.ParameterIndex, &sym.Parameter.Type, &sym.Parameter.DefaultValue))
	case sym.Kind == model.KindVariable || sym.Kind == model.KindField || sym.Kind == model.KindStaticProperty:
		return ignoreNoRows(r.db.QueryRowContext(ctx, "SELECT type, init FROM variableInfo WHERE symbol_id = ?", int64(sym.ID)).
			Scan(&sym.Variable.Type, &sym.Variable.Init))
	}
	return nil
}

func ignoreNoRows(err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// ReadReferences returns every symbol reference row.
func (r *Reader) ReadReferences(ctx context.Context) ([]model.SymbolReference, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol_id, file_id, line, col, parent_symbol_id, flags FROM symbolReference")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SymbolReference
	for rows.Next() {
		var symID, fileID int64
		var line, col, flags int
		var parent sql.NullInt64
		if err := rows.Scan(&symID, &fileID, &line, &col, &parent, &flags); err != nil {
			return nil, err
		}
		ref := model.SymbolReference{
			SymbolID: model.SymbolID(symID),
			FileID:   model.FileID(fileID),
			Position: model.NewFilePosition(line, col),
			Flags:    flags,
		}
		if parent.Valid {
			ref.ReferencedBySymbolID = model.SymbolID(parent.Int64)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ReadDeclarations returns every symbol declaration row.
func (r *Reader) ReadDeclarations(ctx context.Context) ([]model.SymbolDeclaration, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol_id, file_id, startPosition, endPosition, isDefinition FROM symbolDeclaration")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SymbolDeclaration
	for rows.Next() {
		var symID, fileID int64
		var start, end uint32
		var isDef int
		if err := rows.Scan(&symID, &fileID, &start, &end, &isDef); err != nil {
			return nil, err
		}
		out = append(out, model.SymbolDeclaration{
			SymbolID:      model.SymbolID(symID),
			FileID:        model.FileID(fileID),
			StartPosition: model.FilePositionFromBits(start),
			EndPosition:   model.FilePositionFromBits(end),
			IsDefinition:  isDef != 0,
		})
	}
	return out, rows.Err()
}

// ReadBaseOfs returns every baseOf row.
func (r *Reader) ReadBaseOfs(ctx context.Context) ([]model.BaseOf, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT baseClassID, derivedClassID, access FROM baseOf")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BaseOf
	for rows.Next() {
		var base, derived int64
		var access int
		if err := rows.Scan(&base, &derived, &access); err != nil {
			return nil, err
		}
		out = append(out, model.BaseOf{BaseClassID: model.SymbolID(base), DerivedClassID: model.SymbolID(derived), Access: model.AccessSpecifier(access)})
	}
	return out, rows.Err()
}

// ReadOverrides returns every override row.
func (r *Reader) ReadOverrides(ctx context.Context) ([]model.Override, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT overrideMethodID, baseMethodID FROM override")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Override
	for rows.Next() {
		var over, base int64
		if err := rows.Scan(&over, &base); err != nil {
			return nil, err
		}
		out = append(out, model.Override{OverrideMethodID: model.SymbolID(over), BaseMethodID: model.SymbolID(base)})
	}
	return out, rows.Err()
}

// ReadDiagnostics returns every diagnostic row.
func (r *Reader) ReadDiagnostics(ctx context.Context) ([]model.Diagnostic, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT level, fileID, line, col, message FROM diagnostic")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Diagnostic
	for rows.Next() {
		var level int
		var fileID, line, col sql.NullInt64
		var message string
		if err := rows.Scan(&level, &fileID, &line, &col, &message); err != nil {
			return nil, err
		}
		d := model.Diagnostic{Level: model.DiagnosticLevel(level), Message: message}
		if fileID.Valid {
			d.FileID = model.FileID(fileID.Int64)
			d.Position = model.NewFilePosition(int(line.Int64), int(col.Int64))
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ReadRefArgs returns every argumentPassedByReference row.
func (r *Reader) ReadRefArgs(ctx context.Context) ([]model.ArgumentPassedByReference, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT file_id, line, col FROM argumentPassedByReference")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ArgumentPassedByReference
	for rows.Next() {
		var fileID int64
		var line, col int
		if err := rows.Scan(&fileID, &line, &col); err != nil {
			return nil, err
		}
		out = append(out, model.ArgumentPassedByReference{FileID: model.FileID(fileID), Position: model.NewFilePosition(line, col)})
	}
	return out, rows.Err()
}
