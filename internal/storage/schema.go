// Package storage implements the on-disk snapshot format: a SQLite
// database written by SnapshotWriter and read back by SnapshotReader,
// matching the stable schema the rest of the toolchain (editors,
// dashboards, the MCP query server) depends on.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/version"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS info (
	key TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS file (
	id INTEGER PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	content TEXT,
	sha1 TEXT
);

CREATE TABLE IF NOT EXISTS include (
	file_id INTEGER NOT NULL,
	line INTEGER NOT NULL,
	included_file_id INTEGER NOT NULL,
	UNIQUE(file_id, line, included_file_id)
);

CREATE TABLE IF NOT EXISTS symbolKind (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accessSpecifier (
	value INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnosticLevel (
	value INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbol (
	id INTEGER PRIMARY KEY,
	kind INTEGER NOT NULL,
	parent INTEGER,
	name TEXT NOT NULL,
	flags INTEGER NOT NULL DEFAULT 0,
	isLocal INTEGER GENERATED ALWAYS AS (flags & 1) VIRTUAL,
	isFromProject INTEGER GENERATED ALWAYS AS ((flags >> 1) & 1) VIRTUAL,
	isProtected INTEGER GENERATED ALWAYS AS ((flags >> 2) & 1) VIRTUAL,
	isPrivate INTEGER GENERATED ALWAYS AS ((flags >> 3) & 1) VIRTUAL
);
CREATE INDEX IF NOT EXISTS idx_symbol_name ON symbol(name);
CREATE INDEX IF NOT EXISTS idx_symbol_parent ON symbol(parent);

CREATE TABLE IF NOT EXISTS macroInfo (
	symbol_id INTEGER PRIMARY KEY,
	definition TEXT
);

CREATE TABLE IF NOT EXISTS namespaceAliasInfo (
	symbol_id INTEGER PRIMARY KEY,
	target TEXT
);

CREATE TABLE IF NOT EXISTS enumInfo (
	symbol_id INTEGER PRIMARY KEY,
	underlyingType TEXT
);

CREATE TABLE IF NOT EXISTS enumConstantInfo (
	symbol_id INTEGER PRIMARY KEY,
	value INTEGER,
	expression TEXT
);

CREATE TABLE IF NOT EXISTS functionInfo (
	symbol_id INTEGER PRIMARY KEY,
	returnType TEXT
);

CREATE TABLE IF NOT EXISTS parameterInfo (
	symbol_id INTEGER PRIMARY KEY,
	parameterIndex INTEGER,
	type TEXT,
	defaultValue TEXT
);

CREATE TABLE IF NOT EXISTS variableInfo (
	symbol_id INTEGER PRIMARY KEY,
	type TEXT,
	init TEXT
);

CREATE VIEW IF NOT EXISTS macroRecord AS
	SELECT s.id, s.name, s.flags, m.definition
	FROM symbol s JOIN macroInfo m ON m.symbol_id = s.id;

CREATE VIEW IF NOT EXISTS enumRecord AS
	SELECT s.id, s.name, s.flags, e.underlyingType
	FROM symbol s JOIN enumInfo e ON e.symbol_id = s.id;

CREATE VIEW IF NOT EXISTS enumConstantRecord AS
	SELECT s.id, s.name, s.flags, e.value, e.expression
	FROM symbol s JOIN enumConstantInfo e ON e.symbol_id = s.id;

CREATE VIEW IF NOT EXISTS functionRecord AS
	SELECT s.id, s.name, s.flags, f.returnType
	FROM symbol s JOIN functionInfo f ON f.symbol_id = s.id;

CREATE VIEW IF NOT EXISTS variableRecord AS
	SELECT s.id, s.name, s.flags, v.type, v.init
	FROM symbol s JOIN variableInfo v ON v.symbol_id = s.id;

CREATE VIEW IF NOT EXISTS parameterRecord AS
	SELECT s.id, s.name, s.flags, p.parameterIndex, p.type, p.defaultValue
	FROM symbol s JOIN parameterInfo p ON p.symbol_id = s.id;

CREATE VIEW IF NOT EXISTS namespaceAliasRecord AS
	SELECT s.id, s.name, s.flags, n.target
	FROM symbol s JOIN namespaceAliasInfo n ON n.symbol_id = s.id;

CREATE TABLE IF NOT EXISTS symbolReference (
	symbol_id INTEGER NOT NULL,
	file_id INTEGER NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	parent_symbol_id INTEGER,
	flags INTEGER NOT NULL DEFAULT 0,
	isDeclaration INTEGER GENERATED ALWAYS AS (flags & 1) VIRTUAL,
	isDefinition INTEGER GENERATED ALWAYS AS ((flags >> 1) & 1) VIRTUAL,
	isRead INTEGER GENERATED ALWAYS AS ((flags >> 2) & 1) VIRTUAL,
	isWrite INTEGER GENERATED ALWAYS AS ((flags >> 3) & 1) VIRTUAL,
	isCall INTEGER GENERATED ALWAYS AS ((flags >> 4) & 1) VIRTUAL,
	UNIQUE(file_id, line, col, symbol_id)
);
CREATE INDEX IF NOT EXISTS idx_symbolReference_symbol ON symbolReference(symbol_id);

CREATE VIEW IF NOT EXISTS symbolDefinition AS
	SELECT * FROM symbolReference WHERE isDefinition = 1;

CREATE TABLE IF NOT EXISTS symbolDeclaration (
	symbol_id INTEGER NOT NULL,
	file_id INTEGER NOT NULL,
	startPosition INTEGER NOT NULL,
	endPosition INTEGER NOT NULL,
	isDefinition INTEGER NOT NULL DEFAULT 0,
	UNIQUE(symbol_id, file_id, startPosition, endPosition, isDefinition)
);
CREATE INDEX IF NOT EXISTS idx_symbolDeclaration_symbol ON symbolDeclaration(symbol_id);

CREATE TABLE IF NOT EXISTS baseOf (
	baseClassID INTEGER NOT NULL,
	derivedClassID INTEGER NOT NULL,
	access INTEGER NOT NULL,
	UNIQUE(baseClassID, derivedClassID)
);

CREATE TABLE IF NOT EXISTS override (
	overrideMethodID INTEGER PRIMARY KEY,
	baseMethodID INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostic (
	level INTEGER NOT NULL,
	fileID INTEGER,
	line INTEGER,
	col INTEGER,
	message TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS argumentPassedByReference (
	file_id INTEGER NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	UNIQUE(file_id, line, col)
);
`

// SchemaVersion is the value written to info["database.schema.version"]
// for every snapshot this package creates.
const SchemaVersion = version.SchemaVersion

var symbolKindNames = map[model.SymbolKind]string{
	model.KindUnknown: "unknown", model.KindModule: "module",
	model.KindNamespace: "namespace", model.KindInlineNamespace: "inline-namespace",
	model.KindNamespaceAlias: "namespace-alias", model.KindMacro: "macro",
	model.KindEnum: "enum", model.KindEnumClass: "enum-class",
	model.KindStruct: "struct", model.KindClass: "class", model.KindUnion: "union",
	model.KindLambda: "lambda", model.KindTypeAlias: "type-alias",
	model.KindFunction: "function", model.KindVariable: "variable",
	model.KindField: "field", model.KindEnumConstant: "enum-constant",
	model.KindMethod: "method", model.KindStaticMethod: "static-method",
	model.KindStaticProperty: "static-property", model.KindConstructor: "constructor",
	model.KindDestructor: "destructor", model.KindConversionFunction: "conversion-function",
	model.KindOperator: "operator", model.KindParameter: "parameter",
	model.KindTemplateTypeParameter: "template-type-parameter",
	model.KindTemplateTemplateParameter: "template-template-parameter",
	model.KindNonTypeTemplateParameter: "non-type-template-parameter",
	model.KindConcept: "concept",
}

var accessSpecifierNames = map[model.AccessSpecifier]string{
	model.AccessInvalid: "invalid", model.AccessPublic: "public",
	model.AccessProtected: "protected", model.AccessPrivate: "private",
}

var diagnosticLevelNames = map[model.DiagnosticLevel]string{
	model.DiagnosticIgnored: "ignored", model.DiagnosticNote: "note",
	model.DiagnosticRemark: "remark", model.DiagnosticWarning: "warning",
	model.DiagnosticError: "error", model.DiagnosticFatal: "fatal",
}

// Open creates dbPath if necessary, applies pragmas, ensures the
// schema exists, and seeds the enum lookup tables and info rows that
// every snapshot must carry.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if err := seedLookupTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := seedVersionInfo(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenReadOnly opens an existing snapshot database without creating it
// and without applying schema migrations, for tools (the merger, report
// readers) that must never mutate an input snapshot.
func OpenReadOnly(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&immutable=1", dbPath))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s read-only: %w", dbPath, err)
	}
	return db, nil
}

func seedLookupTables(ctx context.Context, db *sql.DB) error {
	for k, v := range symbolKindNames {
		if _, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO symbolKind(id, name) VALUES(?, ?)", int(k), v); err != nil {
			return fmt.Errorf("seed symbolKind: %w", err)
		}
	}
	for k, v := range accessSpecifierNames {
		if _, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO accessSpecifier(value, name) VALUES(?, ?)", int(k), v); err != nil {
			return fmt.Errorf("seed accessSpecifier: %w", err)
		}
	}
	for k, v := range diagnosticLevelNames {
		if _, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO diagnosticLevel(value, name) VALUES(?, ?)", int(k), v); err != nil {
			return fmt.Errorf("seed diagnosticLevel: %w", err)
		}
	}
	return nil
}

func seedVersionInfo(ctx context.Context, db *sql.DB) error {
	rows := map[string]string{
		"cppscanner.version":      version.Version,
		"cppscanner.os":           version.OS(),
		"database.schema.version": SchemaVersion,
	}
	for k, v := range rows {
		if _, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO info(key, value) VALUES(?, ?)", k, v); err != nil {
			return fmt.Errorf("seed info: %w", err)
		}
	}
	return nil
}
