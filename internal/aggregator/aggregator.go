// Package aggregator implements the SnapshotAggregator: folding one
// TranslationUnitIndex at a time into a growing snapshot, on disk via
// internal/storage and in memory via dedup maps kept across calls to
// Feed. Each numbered step below mirrors the specification's
// transaction-per-step algorithm.
package aggregator

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

// Aggregator owns the write side of a growing snapshot.
type Aggregator struct {
	db     *sql.DB
	writer *storage.Writer
	global *fileid.ThreadSafe

	homeDir string

	insertedFiles      map[model.FileID]struct{}
	includedPathsKnown map[model.FileID]struct{}
	indexedAnywhere    map[model.FileID]struct{}

	fileIncludes     map[model.FileID]map[model.IncludeKey]struct{}
	globalSymbols    map[model.SymbolID]*model.Symbol
	fileReferences   map[model.FileID]map[model.ReferenceKey]model.SymbolReference
	fileDeclarations map[model.FileID]map[model.DeclarationKey]struct{}
	fileDiagnostics  map[model.FileID]map[model.DiagnosticKey]struct{}
}

// New returns an Aggregator writing into db, tracking project
// membership against homeDir (files under it have their content
// captured; "" disables content capture entirely).
func New(db *sql.DB, global *fileid.ThreadSafe, homeDir string) *Aggregator {
	return &Aggregator{
		db:                 db,
		writer:             storage.NewWriter(db),
		global:             global,
		homeDir:            homeDir,
		insertedFiles:      make(map[model.FileID]struct{}),
		includedPathsKnown: make(map[model.FileID]struct{}),
		indexedAnywhere:    make(map[model.FileID]struct{}),
		fileIncludes:       make(map[model.FileID]map[model.IncludeKey]struct{}),
		globalSymbols:      make(map[model.SymbolID]*model.Symbol),
		fileReferences:     make(map[model.FileID]map[model.ReferenceKey]model.SymbolReference),
		fileDeclarations:   make(map[model.FileID]map[model.DeclarationKey]struct{}),
		fileDiagnostics:    make(map[model.FileID]map[model.DiagnosticKey]struct{}),
	}
}

// Feed folds one TU into the snapshot. An error-tagged TU (failed
// parse) is the scanner's responsibility to log; Feed is a no-op for
// it.
func (a *Aggregator) Feed(ctx context.Context, tu *model.TranslationUnitIndex, tuIdentificator fileid.FileIdentificator) error {
	if tu.IsError {
		return nil
	}

	remap := a.buildFileRemap(tuIdentificator)
	remapTU(tu, remap)

	if err := a.insertNewFiles(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: new files: %w", err)
	}
	if err := a.insertIncludedFilePaths(ctx, tu, tuIdentificator, remap); err != nil {
		return fmt.Errorf("aggregate: included file paths: %w", err)
	}
	if err := a.mergeIncludes(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: includes: %w", err)
	}
	if err := a.mergeSymbols(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: symbols: %w", err)
	}
	if err := a.mergeReferences(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: references: %w", err)
	}
	if err := a.mergeRelations(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: relations: %w", err)
	}
	if err := a.mergeDiagnostics(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: diagnostics: %w", err)
	}
	if err := a.mergeRefArgs(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: refargs: %w", err)
	}
	if err := a.mergeDeclarations(ctx, tu); err != nil {
		return fmt.Errorf("aggregate: declarations: %w", err)
	}
	a.markIndexed(tu)
	return nil
}

// step 1: file remap. If the TU used a different FileIdentificator
// than the global one, build a translation table by re-resolving
// every path through the global identificator.
func (a *Aggregator) buildFileRemap(tuIdentificator fileid.FileIdentificator) map[model.FileID]model.FileID {
	remap := make(map[model.FileID]model.FileID)
	if tuIdentificator == nil {
		return remap
	}
	for _, path := range tuIdentificator.AllFiles() {
		if path == "" {
			continue
		}
		tuID := tuIdentificator.IDFor(path)
		remap[tuID] = a.global.IDFor(path)
	}
	return remap
}

func remapFileID(remap map[model.FileID]model.FileID, id model.FileID) model.FileID {
	if g, ok := remap[id]; ok {
		return g
	}
	return id
}

func remapTU(tu *model.TranslationUnitIndex, remap map[model.FileID]model.FileID) {
	if len(remap) == 0 {
		return
	}

	tu.MainFileID = remapFileID(remap, tu.MainFileID)

	reindexed := make(map[model.FileID]struct{}, len(tu.IndexedFiles))
	for f := range tu.IndexedFiles {
		reindexed[remapFileID(remap, f)] = struct{}{}
	}
	tu.IndexedFiles = reindexed

	for i := range tu.Includes {
		tu.Includes[i].FileID = remapFileID(remap, tu.Includes[i].FileID)
		tu.Includes[i].IncludedFileID = remapFileID(remap, tu.Includes[i].IncludedFileID)
	}
	for i := range tu.References {
		tu.References[i].FileID = remapFileID(remap, tu.References[i].FileID)
	}
	for i := range tu.Declarations {
		tu.Declarations[i].FileID = remapFileID(remap, tu.Declarations[i].FileID)
	}
	for i := range tu.Diagnostics {
		if tu.Diagnostics[i].FileID.IsValid() {
			tu.Diagnostics[i].FileID = remapFileID(remap, tu.Diagnostics[i].FileID)
		}
	}
	for i := range tu.RefArgs {
		tu.RefArgs[i].FileID = remapFileID(remap, tu.RefArgs[i].FileID)
	}
}

// step 2: insert a row for every indexed file not yet known, capturing
// content+sha1 only for files under homeDir.
func (a *Aggregator) insertNewFiles(ctx context.Context, tu *model.TranslationUnitIndex) error {
	for f := range tu.IndexedFiles {
		if _, ok := a.insertedFiles[f]; ok {
			continue
		}

		path := a.global.PathFor(f)
		file := model.File{ID: f, Path: path}

		if a.isProjectFile(path) {
			if content, err := os.ReadFile(path); err == nil {
				text := strings.ReplaceAll(string(content), "\r\n", "\n")
				file.Content = text
				sum := sha1.Sum([]byte(text))
				file.HasSHA1 = true
				file.SHA1 = hex.EncodeToString(sum[:])
			}
		}

		if err := a.writer.InsertFile(ctx, file); err != nil {
			return err
		}
		a.insertedFiles[f] = struct{}{}
	}
	return nil
}

func (a *Aggregator) isProjectFile(path string) bool {
	return a.homeDir != "" && strings.HasPrefix(path, a.homeDir)
}

// step 3: insert a path-only row for every included file not yet
// present (headers pulled in but never themselves indexed).
func (a *Aggregator) insertIncludedFilePaths(ctx context.Context, tu *model.TranslationUnitIndex, _ fileid.FileIdentificator, _ map[model.FileID]model.FileID) error {
	for _, inc := range tu.Includes {
		target := inc.IncludedFileID
		if _, ok := a.insertedFiles[target]; ok {
			continue
		}
		if _, ok := a.includedPathsKnown[target]; ok {
			continue
		}
		if err := a.writer.InsertFile(ctx, model.File{ID: target, Path: a.global.PathFor(target)}); err != nil {
			return err
		}
		a.includedPathsKnown[target] = struct{}{}
		a.insertedFiles[target] = struct{}{}
	}
	return nil
}

// step 4: partition includes by file, union with whatever is already
// known for that file, delete-and-reinsert.
func (a *Aggregator) mergeIncludes(ctx context.Context, tu *model.TranslationUnitIndex) error {
	byFile := make(map[model.FileID][]model.Include)
	for _, inc := range tu.Includes {
		byFile[inc.FileID] = append(byFile[inc.FileID], inc)
	}
	if len(byFile) == 0 {
		return nil
	}

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for file, incs := range byFile {
		known, seenBefore := a.fileIncludes[file]
		if !seenBefore {
			known = make(map[model.IncludeKey]struct{})
			a.fileIncludes[file] = known
		}

		var toInsert []model.Include
		for _, inc := range incs {
			key := inc.Key()
			if _, dup := known[key]; dup {
				continue
			}
			known[key] = struct{}{}
			toInsert = append(toInsert, inc)
		}
		if len(toInsert) == 0 {
			continue
		}

		if seenBefore {
			if err := a.writer.DeleteIncludesForFile(ctx, tx, file); err != nil {
				return err
			}
			all := make([]model.Include, 0, len(known))
			for k := range known {
				all = append(all, model.Include{FileID: k.FileID, Line: k.Line, IncludedFileID: k.IncludedFileID})
			}
			toInsert = all
		}

		if err := a.writer.InsertIncludes(ctx, tx, toInsert); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// step 5: move-insert new symbols, OR-merge flags for known ones.
func (a *Aggregator) mergeSymbols(ctx context.Context, tu *model.TranslationUnitIndex) error {
	if len(tu.Symbols) == 0 {
		return nil
	}

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for id, s := range tu.Symbols {
		if existing, ok := a.globalSymbols[id]; ok {
			if existing.MergeFlags(s.Flags) {
				if err := a.writer.UpdateSymbolFlags(ctx, tx, id, existing.Flags); err != nil {
					return err
				}
			}
			continue
		}

		a.globalSymbols[id] = s
		if err := a.writer.InsertSymbol(ctx, tx, s); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// step 6: per-file reference dedup, preferring rows with a valid
// ReferencedBySymbolID on a tie.
func (a *Aggregator) mergeReferences(ctx context.Context, tu *model.TranslationUnitIndex) error {
	if len(tu.References) == 0 {
		return nil
	}

	refs := model.SortAndDeduplicateReferences(tu.References)

	byFile := make(map[model.FileID][]model.SymbolReference)
	for _, r := range refs {
		byFile[r.FileID] = append(byFile[r.FileID], r)
	}

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for file, rs := range byFile {
		known, seenBefore := a.fileReferences[file]
		if !seenBefore {
			known = make(map[model.ReferenceKey]model.SymbolReference)
			a.fileReferences[file] = known
		}

		changed := false
		for _, r := range rs {
			key := r.Key()
			if existing, dup := known[key]; dup {
				if !existing.ReferencedBySymbolID.IsValid() && r.ReferencedBySymbolID.IsValid() {
					known[key] = r
					changed = true
				}
				continue
			}
			known[key] = r
			changed = true
		}
		if !changed {
			continue
		}

		if seenBefore {
			if err := a.writer.DeleteReferencesForFile(ctx, tx, file); err != nil {
				return err
			}
		}
		all := make([]model.SymbolReference, 0, len(known))
		for _, r := range known {
			all = append(all, r)
		}
		if err := a.writer.InsertReferences(ctx, tx, all); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// step 7: relations are append-only; uniqueness constraints make
// re-insertion a no-op.
func (a *Aggregator) mergeRelations(ctx context.Context, tu *model.TranslationUnitIndex) error {
	if len(tu.BaseOfs) == 0 && len(tu.Overrides) == 0 {
		return nil
	}

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := a.writer.InsertBaseOfs(ctx, tx, tu.BaseOfs); err != nil {
		return err
	}
	if err := a.writer.InsertOverrides(ctx, tx, tu.Overrides); err != nil {
		return err
	}
	return tx.Commit()
}

// step 8: per-file diagnostic dedup under (level, position, message).
func (a *Aggregator) mergeDiagnostics(ctx context.Context, tu *model.TranslationUnitIndex) error {
	if len(tu.Diagnostics) == 0 {
		return nil
	}

	byFile := make(map[model.FileID][]model.Diagnostic)
	for _, d := range tu.Diagnostics {
		byFile[d.FileID] = append(byFile[d.FileID], d)
	}

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for file, ds := range byFile {
		known, seenBefore := a.fileDiagnostics[file]
		if !seenBefore {
			known = make(map[model.DiagnosticKey]struct{})
			a.fileDiagnostics[file] = known
		}

		var fresh []model.Diagnostic
		for _, d := range ds {
			key := d.Key()
			if _, dup := known[key]; dup {
				continue
			}
			known[key] = struct{}{}
			fresh = append(fresh, d)
		}
		if len(fresh) == 0 {
			continue
		}
		if err := a.writer.InsertDiagnostics(ctx, tx, fresh); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// step 9: bulk-insert argument-by-reference rows, deduplicated under
// (fileID, position) by the schema's UNIQUE constraint.
func (a *Aggregator) mergeRefArgs(ctx context.Context, tu *model.TranslationUnitIndex) error {
	if len(tu.RefArgs) == 0 {
		return nil
	}
	args := model.SortAndDeduplicateRefArgs(tu.RefArgs)

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := a.writer.InsertRefArgs(ctx, tx, args); err != nil {
		return err
	}
	return tx.Commit()
}

// step 10: per-file declaration dedup under (symbolID, startPosition,
// endPosition, isDefinition).
func (a *Aggregator) mergeDeclarations(ctx context.Context, tu *model.TranslationUnitIndex) error {
	if len(tu.Declarations) == 0 {
		return nil
	}

	decls := model.SortAndDeduplicateDeclarations(tu.Declarations)
	byFile := make(map[model.FileID][]model.SymbolDeclaration)
	for _, d := range decls {
		byFile[d.FileID] = append(byFile[d.FileID], d)
	}

	tx, err := a.writer.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for file, ds := range byFile {
		known, seenBefore := a.fileDeclarations[file]
		if !seenBefore {
			known = make(map[model.DeclarationKey]struct{})
			a.fileDeclarations[file] = known
		}

		var fresh []model.SymbolDeclaration
		for _, d := range ds {
			key := d.Key()
			if _, dup := known[key]; dup {
				continue
			}
			known[key] = struct{}{}
			fresh = append(fresh, d)
		}
		if len(fresh) == 0 {
			continue
		}
		if err := a.writer.InsertDeclarations(ctx, tx, fresh); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// step 11: mark every newly indexed file as indexed, for good.
func (a *Aggregator) markIndexed(tu *model.TranslationUnitIndex) {
	for f := range tu.IndexedFiles {
		a.indexedAnywhere[f] = struct{}{}
	}
}

// IsIndexed reports whether f has been marked indexed by any TU fed so
// far.
func (a *Aggregator) IsIndexed(f model.FileID) bool {
	_, ok := a.indexedAnywhere[f]
	return ok
}

// WriteRunInfo records the scanner-level info properties the
// specification requires on every snapshot.
func (a *Aggregator) WriteRunInfo(ctx context.Context, homeDir string, indexLocalSymbols, indexExternalFiles bool) error {
	if homeDir != "" {
		if err := a.writer.SetInfo(ctx, "project.home", homeDir); err != nil {
			return err
		}
	}
	if err := a.writer.SetInfo(ctx, "scanner.indexLocalSymbols", boolString(indexLocalSymbols)); err != nil {
		return err
	}
	return a.writer.SetInfo(ctx, "scanner.indexExternalFiles", boolString(indexExternalFiles))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
