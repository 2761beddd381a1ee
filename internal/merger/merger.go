// Package merger implements the SnapshotMerger: combining several
// already-written snapshot databases into one, without re-running any
// C++ parsing. Every input is opened read-only; nothing here mutates a
// source snapshot.
package merger

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/logging"
	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/storage"
	"github.com/strandfield/cppscanner-go/internal/version"
)

// FileContentWriter fills in Content/SHA1 for an in-project file (one
// under project.home) for which no input captured any content. External
// files are never passed to it. Implementations may read the file back
// from disk; leaving Content empty is always valid, and an error is
// logged and the file kept without content.
type FileContentWriter interface {
	Fill(f *model.File) error
}

type inputSnapshot struct {
	path       string
	db         *sql.DB
	reader     *storage.Reader
	properties map[string]string
	remap      map[model.FileID]model.FileID
}

// Merger combines N input snapshots into one output snapshot.
type Merger struct {
	inputPaths      []string
	outputPath      string
	projectHome     string
	haveProjectHome bool
	extraProperties map[string]string
	contentWriter   FileContentWriter
}

// New returns an empty Merger; configure it with the setters below
// before calling Run.
func New() *Merger {
	return &Merger{extraProperties: make(map[string]string)}
}

// AddInput appends one input snapshot path.
func (m *Merger) AddInput(path string) { m.inputPaths = append(m.inputPaths, path) }

// SetInputs replaces the input snapshot list.
func (m *Merger) SetInputs(paths []string) { m.inputPaths = append([]string(nil), paths...) }

// SetOutputPath sets where the merged snapshot is written.
func (m *Merger) SetOutputPath(path string) { m.outputPath = path }

// SetProjectHome overrides the project.home property agreement logic
// with an explicit value.
func (m *Merger) SetProjectHome(path string) {
	m.projectHome = path
	m.haveProjectHome = true
}

// SetExtraProperty records an info-table override applied after the
// inputs' own properties have been folded in.
func (m *Merger) SetExtraProperty(name, value string) {
	m.extraProperties[name] = value
}

// SetFileContentWriter installs a best-effort content backfiller for
// in-project files with no captured content in any input.
func (m *Merger) SetFileContentWriter(w FileContentWriter) { m.contentWriter = w }

// agreedProperties are copied into the output only when every input
// that defines the key agrees on its value.
var agreedProperties = []string{"scanner.indexLocalSymbols", "scanner.indexExternalFiles", "scanner.root"}

// Run executes the merge.
func (m *Merger) Run(ctx context.Context) error {
	snapshots, err := m.openInputs(ctx)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range snapshots {
			s.db.Close()
		}
	}()
	if len(snapshots) == 0 {
		return fmt.Errorf("merge: no valid input snapshots")
	}

	out, err := storage.Open(ctx, m.outputPath)
	if err != nil {
		return fmt.Errorf("merge: open output: %w", err)
	}
	defer out.Close()
	writer := storage.NewWriter(out)

	if err := m.writeInfoTable(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: info table: %w", err)
	}

	table := fileid.NewBasic()
	contentByFile, err := m.buildFileTable(ctx, table, snapshots)
	if err != nil {
		return fmt.Errorf("merge: file table: %w", err)
	}

	if m.contentWriter != nil {
		for id, content := range contentByFile {
			if content.Content != "" {
				continue
			}
			f := model.File{ID: id, Path: table.PathFor(id)}
			if err := m.contentWriter.Fill(&f); err != nil {
				logging.Warn("merge: content backfill failed for %s: %v", f.Path, err)
				continue
			}
			contentByFile[id] = f
		}
	}

	if err := m.writeFiles(ctx, writer, table, contentByFile); err != nil {
		return fmt.Errorf("merge: write files: %w", err)
	}

	if err := m.buildRemapTables(ctx, table, snapshots); err != nil {
		return fmt.Errorf("merge: remap tables: %w", err)
	}

	if err := m.mergeIncludes(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: includes: %w", err)
	}
	if err := m.mergeRefArgs(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: refargs: %w", err)
	}
	if err := m.mergeDiagnostics(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: diagnostics: %w", err)
	}
	if err := m.mergeSymbols(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: symbols: %w", err)
	}
	if err := m.mergeReferences(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: references: %w", err)
	}
	if err := m.mergeDeclarations(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: declarations: %w", err)
	}
	if err := m.mergeRelations(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: relations: %w", err)
	}
	if err := m.mergeExtraInfo(ctx, writer, snapshots); err != nil {
		return fmt.Errorf("merge: extra info: %w", err)
	}

	return nil
}

// openInputs opens every distinct input path read-only, skipping ones
// that fail to open (a best-effort "list good snapshots" pass,
// matching the reference merger).
func (m *Merger) openInputs(ctx context.Context) ([]*inputSnapshot, error) {
	seen := make(map[string]struct{})
	var out []*inputSnapshot

	for _, p := range m.inputPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		abs = filepath.ToSlash(abs)
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}

		db, err := storage.OpenReadOnly(ctx, p)
		if err != nil {
			logging.Warn("merge: skipping unreadable snapshot %s: %v", p, err)
			continue
		}

		reader := storage.NewReader(db)
		props, err := reader.ReadInfo(ctx)
		if err != nil {
			db.Close()
			logging.Warn("merge: skipping snapshot with unreadable info table %s: %v", p, err)
			continue
		}

		out = append(out, &inputSnapshot{path: p, db: db, reader: reader, properties: props})
	}

	return out, nil
}

func (m *Merger) writeInfoTable(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	if err := writer.SetInfo(ctx, "cppscanner.version", version.Version); err != nil {
		return err
	}
	if err := writer.SetInfo(ctx, "cppscanner.os", version.OS()); err != nil {
		return err
	}

	home, ok := m.resolveProjectHome(snapshots)
	if ok {
		if err := writer.SetInfo(ctx, "project.home", home); err != nil {
			return err
		}
	} else {
		logging.Warn("merge: inputs disagree on project.home; leaving it unset")
	}

	for _, key := range agreedProperties {
		if value, ok := agreedValue(snapshots, key); ok {
			if err := writer.SetInfo(ctx, key, value); err != nil {
				return err
			}
		}
	}

	for k, v := range m.extraProperties {
		if err := writer.SetInfo(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merger) resolveProjectHome(snapshots []*inputSnapshot) (string, bool) {
	if m.haveProjectHome {
		return fileid.NormalizePath(m.projectHome), true
	}
	return agreedValue(snapshots, "project.home")
}

// agreedValue returns (value, true) only if every snapshot that has
// key at all agrees on its value; a snapshot with no opinion does not
// break agreement.
func agreedValue(snapshots []*inputSnapshot, key string) (string, bool) {
	var value string
	have := false
	for _, s := range snapshots {
		v, ok := s.properties[key]
		if !ok {
			continue
		}
		if !have {
			value, have = v, true
			continue
		}
		if v != value {
			return "", false
		}
	}
	return value, have
}

// buildFileTable performs the two-pass file union: every input's
// in-project files are inserted first (content kept as-is), then every
// distinct external path, sorted for determinism. Returns the captured
// content for in-project files, keyed by the *global* FileID.
func (m *Merger) buildFileTable(ctx context.Context, table *fileid.Basic, snapshots []*inputSnapshot) (map[model.FileID]model.File, error) {
	content := make(map[model.FileID]model.File)
	externalPaths := make(map[string]struct{})

	for _, s := range snapshots {
		files, err := s.reader.ReadFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.path, err)
		}

		home := s.properties["project.home"]
		for _, f := range files {
			if home != "" && strings.HasPrefix(fileid.NormalizePath(f.Path), home) {
				id := table.IDFor(f.Path)
				if f.Content != "" {
					content[id] = model.File{ID: id, Path: f.Path, Content: f.Content, HasSHA1: f.HasSHA1, SHA1: f.SHA1}
				} else if _, known := content[id]; !known {
					content[id] = model.File{ID: id, Path: f.Path}
				}
			} else {
				externalPaths[f.Path] = struct{}{}
			}
		}
	}

	sorted := make([]string, 0, len(externalPaths))
	for p := range externalPaths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	for _, p := range sorted {
		table.IDFor(p)
	}

	return content, nil
}

func (m *Merger) writeFiles(ctx context.Context, writer *storage.Writer, table *fileid.Basic, content map[model.FileID]model.File) error {
	for _, path := range table.AllFiles() {
		if path == "" {
			continue
		}
		id := table.IDFor(path)
		f, ok := content[id]
		if !ok {
			f = model.File{ID: id, Path: path}
		}
		if err := writer.InsertFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// buildRemapTables resolves, for every input, a FileID -> FileID
// translation table from its own local IDs to the unified table's IDs.
func (m *Merger) buildRemapTables(ctx context.Context, table *fileid.Basic, snapshots []*inputSnapshot) error {
	for _, s := range snapshots {
		files, err := s.reader.ReadFiles(ctx)
		if err != nil {
			return err
		}
		remap := make(map[model.FileID]model.FileID, len(files))
		for _, f := range files {
			remap[f.ID] = table.IDFor(f.Path)
		}
		s.remap = remap
	}
	return nil
}

func (m *Merger) mergeIncludes(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	var all []model.Include
	for _, s := range snapshots {
		includes, err := s.reader.ReadIncludes(ctx)
		if err != nil {
			return err
		}
		for _, inc := range includes {
			inc.FileID = s.remap[inc.FileID]
			inc.IncludedFileID = s.remap[inc.IncludedFileID]
			all = append(all, inc)
		}
	}
	all = dedupeIncludes(all)

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := writer.InsertIncludes(ctx, tx, all); err != nil {
		return err
	}
	return tx.Commit()
}

func dedupeIncludes(all []model.Include) []model.Include {
	seen := make(map[model.IncludeKey]struct{}, len(all))
	out := all[:0:0]
	for _, inc := range all {
		key := inc.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, inc)
	}
	return out
}

func (m *Merger) mergeRefArgs(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	var all []model.ArgumentPassedByReference
	for _, s := range snapshots {
		rows, err := s.reader.ReadRefArgs(ctx)
		if err != nil {
			return err
		}
		for _, a := range rows {
			a.FileID = s.remap[a.FileID]
			all = append(all, a)
		}
	}
	all = model.SortAndDeduplicateRefArgs(all)

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := writer.InsertRefArgs(ctx, tx, all); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Merger) mergeDiagnostics(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	var all []model.Diagnostic
	for _, s := range snapshots {
		rows, err := s.reader.ReadDiagnostics(ctx)
		if err != nil {
			return err
		}
		for _, d := range rows {
			if d.FileID.IsValid() {
				d.FileID = s.remap[d.FileID]
			}
			all = append(all, d)
		}
	}

	seen := make(map[model.DiagnosticKey]struct{}, len(all))
	var fresh []model.Diagnostic
	for _, d := range all {
		key := d.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, d)
	}

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := writer.InsertDiagnostics(ctx, tx, fresh); err != nil {
		return err
	}
	return tx.Commit()
}

// mergeSymbols folds the base symbol row (kind/parent/name/flags) of
// every input, OR-merging flags on a collision; kind-specific extra
// info is handled separately by mergeExtraInfo with last-writer-wins
// semantics, matching the reference merger.
func (m *Merger) mergeSymbols(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	merged := make(map[model.SymbolID]*model.Symbol)
	order := make([]model.SymbolID, 0)

	for _, s := range snapshots {
		symbols, err := s.reader.ReadSymbols(ctx)
		if err != nil {
			return err
		}
		for _, sym := range symbols {
			if existing, ok := merged[sym.ID]; ok {
				existing.MergeFlags(sym.Flags)
				continue
			}
			merged[sym.ID] = &model.Symbol{ID: sym.ID, Kind: sym.Kind, ParentID: sym.ParentID, Name: sym.Name, Flags: sym.Flags}
			order = append(order, sym.ID)
		}
	}

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range order {
		if err := writer.InsertSymbol(ctx, tx, merged[id]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Merger) mergeReferences(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	var all []model.SymbolReference
	for _, s := range snapshots {
		refs, err := s.reader.ReadReferences(ctx)
		if err != nil {
			return err
		}
		for _, r := range refs {
			r.FileID = s.remap[r.FileID]
			all = append(all, r)
		}
	}
	all = model.SortAndDeduplicateReferences(all)

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := writer.InsertReferences(ctx, tx, all); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Merger) mergeDeclarations(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	var all []model.SymbolDeclaration
	for _, s := range snapshots {
		decls, err := s.reader.ReadDeclarations(ctx)
		if err != nil {
			return err
		}
		for _, d := range decls {
			d.FileID = s.remap[d.FileID]
			all = append(all, d)
		}
	}
	all = model.SortAndDeduplicateDeclarations(all)

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := writer.InsertDeclarations(ctx, tx, all); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Merger) mergeRelations(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	var bases []model.BaseOf
	var overrides []model.Override
	for _, s := range snapshots {
		b, err := s.reader.ReadBaseOfs(ctx)
		if err != nil {
			return err
		}
		bases = append(bases, b...)

		o, err := s.reader.ReadOverrides(ctx)
		if err != nil {
			return err
		}
		overrides = append(overrides, o...)
	}

	bases = dedupeBaseOfs(bases)
	overrides = dedupeOverrides(overrides)

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := writer.InsertBaseOfs(ctx, tx, bases); err != nil {
		return err
	}
	if err := writer.InsertOverrides(ctx, tx, overrides); err != nil {
		return err
	}
	return tx.Commit()
}

func dedupeBaseOfs(rows []model.BaseOf) []model.BaseOf {
	type key struct {
		base, derived model.SymbolID
	}
	seen := make(map[key]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key{r.BaseClassID, r.DerivedClassID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func dedupeOverrides(rows []model.Override) []model.Override {
	seen := make(map[model.SymbolID]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		if _, dup := seen[r.OverrideMethodID]; dup {
			continue
		}
		seen[r.OverrideMethodID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// mergeExtraInfo re-reads every input's full symbol set (base row plus
// kind-specific extra info) and writes the extra info back, last input
// wins on a collision.
func (m *Merger) mergeExtraInfo(ctx context.Context, writer *storage.Writer, snapshots []*inputSnapshot) error {
	tx, err := writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range snapshots {
		symbols, err := s.reader.ReadSymbols(ctx)
		if err != nil {
			return err
		}
		for _, sym := range symbols {
			// InsertSymbol would fail on a duplicate id; here we only need
			// the kind-specific info side, so skip straight to the writer's
			// extra-info replace, exposed here via UpdateSymbolFlags's
			// sibling.
			if err := writer.ReplaceSymbolExtraInfo(ctx, tx, sym); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
