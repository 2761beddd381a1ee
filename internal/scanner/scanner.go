// Package scanner wires together every other stage of the pipeline —
// the file identificator, the indexing arbiter, the parsing worker
// pool, and the snapshot aggregator — into the single top-level
// operation a cppscanner run performs.
package scanner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strandfield/cppscanner-go/internal/aggregator"
	"github.com/strandfield/cppscanner-go/internal/arbiter"
	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/frontend"
	"github.com/strandfield/cppscanner-go/internal/indexer"
	"github.com/strandfield/cppscanner-go/internal/logging"
	"github.com/strandfield/cppscanner-go/internal/queue"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

// Scanner is the top-level orchestrator: configure it with the setters
// below, then call Run once.
type Scanner struct {
	homeDir            string
	rootDir            string
	indexExternalFiles bool
	indexLocalSymbols  bool
	filters            []string
	tuFilters          []string
	numThreads         int
	compilationArgs    []string

	outputPath   string
	overwrite    bool
	projectName  string
	projectVersion string

	invocations []queue.ToolInvocation
	frontEnd    frontend.Driver
}

// New returns a Scanner with every option at its zero value
// (single-threaded, no external files, no filters).
func New() *Scanner {
	return &Scanner{}
}

func (s *Scanner) SetHomeDir(path string)            { s.homeDir = fileid.NormalizePath(path) }
func (s *Scanner) SetRootDir(path string)             { s.rootDir = fileid.NormalizePath(path) }
func (s *Scanner) SetIndexExternalFiles(on bool)      { s.indexExternalFiles = on }
func (s *Scanner) SetIndexLocalSymbols(on bool)       { s.indexLocalSymbols = on }
func (s *Scanner) SetFilters(patterns []string)       { s.filters = patterns }
func (s *Scanner) SetTranslationUnitFilters(p []string) { s.tuFilters = p }
func (s *Scanner) SetNumberOfParsingThreads(n int)    { s.numThreads = n }
func (s *Scanner) SetCompilationArguments(argv []string) { s.compilationArgs = argv }
func (s *Scanner) SetOutputPath(path string)          { s.outputPath = path }
func (s *Scanner) SetOverwrite(on bool)                { s.overwrite = on }
func (s *Scanner) SetProjectName(name string)         { s.projectName = name }
func (s *Scanner) SetProjectVersion(v string)          { s.projectVersion = v }

// SetFrontEnd installs the C++ front-end collaborator. Required before
// Run.
func (s *Scanner) SetFrontEnd(d frontend.Driver) { s.frontEnd = d }

// SetInvocations sets the resolved translation-unit work list directly,
// already built from whichever compile-command source the caller chose
// (compile_commands.json, a literal input list, or a CMake File-API
// reply) via the helpers in sources.go or internal/cmakeapi.
func (s *Scanner) SetInvocations(invocations []queue.ToolInvocation) {
	s.invocations = invocations
}

// buildArbiter assembles the FileIndexingArbiter per the fixed leaf
// ordering: IndexOnce is always present; a directory boundary narrows
// to either rootDir (external indexing enabled) or homeDir (disabled);
// a pattern filter further narrows when configured. The whole
// composite is wrapped thread-safe when more than one worker will
// share it.
func (s *Scanner) buildArbiter(global *fileid.ThreadSafe) (arbiter.FileIndexingArbiter, error) {
	var leaves []arbiter.FileIndexingArbiter
	leaves = append(leaves, arbiter.NewIndexOnce())

	switch {
	case s.indexExternalFiles && s.rootDir != "":
		dir, err := arbiter.NewInsideDirectory(global, s.rootDir)
		if err != nil {
			return nil, fmt.Errorf("build arbiter: root dir: %w", err)
		}
		leaves = append(leaves, dir)
	case !s.indexExternalFiles:
		dir, err := arbiter.NewInsideDirectory(global, s.homeDir)
		if err != nil {
			return nil, fmt.Errorf("build arbiter: home dir: %w", err)
		}
		leaves = append(leaves, dir)
	}

	if len(s.filters) > 0 {
		leaves = append(leaves, arbiter.NewMatchesPattern(global, s.filters))
	}

	composite := arbiter.NewComposite(leaves...)
	if s.effectiveThreads() > 1 {
		return arbiter.NewThreadSafe(composite), nil
	}
	return composite, nil
}

func (s *Scanner) effectiveThreads() int {
	if s.numThreads <= 0 {
		return 1
	}
	return s.numThreads
}

// Run executes the whole scan: builds the work queue, runs the
// configured number of parsing workers, and folds every completed
// translation unit into the output snapshot as results arrive.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.frontEnd == nil {
		return fmt.Errorf("scanner: no front-end driver configured")
	}

	if !s.overwrite {
		if _, err := os.Stat(s.outputPath); err == nil {
			return fmt.Errorf("scanner: output %s already exists (use --overwrite)", s.outputPath)
		}
	} else {
		_ = os.Remove(s.outputPath)
	}

	db, err := storage.Open(ctx, s.outputPath)
	if err != nil {
		return fmt.Errorf("scanner: open output: %w", err)
	}
	defer db.Close()

	global := fileid.NewThreadSafe()
	arb, err := s.buildArbiter(global)
	if err != nil {
		return err
	}

	agg := aggregator.New(db, global, s.homeDir)
	if err := agg.WriteRunInfo(ctx, s.homeDir, s.indexLocalSymbols, s.indexExternalFiles); err != nil {
		return fmt.Errorf("scanner: write run info: %w", err)
	}
	writer := storage.NewWriter(db)
	if s.rootDir != "" {
		if err := writer.SetInfo(ctx, "scanner.root", s.rootDir); err != nil {
			return err
		}
	}
	if s.projectName != "" {
		if err := writer.SetInfo(ctx, "project.name", s.projectName); err != nil {
			return err
		}
	}
	if s.projectVersion != "" {
		if err := writer.SetInfo(ctx, "project.version", s.projectVersion); err != nil {
			return err
		}
	}

	invocations := filterInvocations(s.invocations, s.tuFilters)
	logging.Scan("enqueuing %d translation units (%d filtered out)", len(invocations), len(s.invocations)-len(invocations))

	wq := queue.NewWorkQueue(invocations)
	rq := queue.NewResultQueue(s.effectiveThreads() * 2)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.effectiveThreads(); w++ {
		workerID := uintptr(w + 1)
		g.Go(func() error {
			return s.runWorker(gctx, workerID, global, arb, wq, rq)
		})
	}

	var workerErr error
	var once sync.Once
	done := make(chan struct{})
	go func() {
		if err := g.Wait(); err != nil {
			once.Do(func() { workerErr = err })
		}
		close(done)
		rq.Close()
	}()

	if err := s.drain(ctx, rq, done, agg); err != nil {
		return err
	}
	if workerErr != nil {
		return fmt.Errorf("scanner: worker failed: %w", workerErr)
	}
	return nil
}

func (s *Scanner) runWorker(ctx context.Context, id uintptr, global *fileid.ThreadSafe, arb arbiter.FileIndexingArbiter, wq *queue.WorkQueue, rq *queue.ResultQueue) error {
	idxr := indexer.New(arb, id)

	for {
		inv, ok := wq.Next()
		if !ok {
			return nil
		}

		mainFileID := global.IDFor(inv.Filename)
		idxr.Initialize(mainFileID)

		argv := adjustArguments(append(append([]string(nil), inv.Argv...), s.compilationArgs...))

		includes, callArgs, err := s.frontEnd.Parse(ctx, inv.Filename, argv, global, idxr)
		if err != nil {
			logging.Scan("worker %d: %s failed: %v", id, inv.Filename, err)
			rq.Write(idxr.Fail(mainFileID))
			continue
		}

		rq.Write(idxr.Finish(includes, callArgs))
	}
}

// drain runs on the calling goroutine (the "scanner thread"): it polls
// the result queue with a 250ms timeout while workers are running, and
// switches to a plain blocking drain once they have all finished.
func (s *Scanner) drain(ctx context.Context, rq *queue.ResultQueue, done <-chan struct{}, agg *aggregator.Aggregator) error {
	for {
		tu, ok := rq.TryRead(250 * time.Millisecond)
		if ok {
			if err := agg.Feed(ctx, tu, nil); err != nil {
				return fmt.Errorf("scanner: aggregate: %w", err)
			}
			continue
		}

		select {
		case <-done:
			for {
				tu, ok := rq.Read()
				if !ok {
					return nil
				}
				if err := agg.Feed(ctx, tu, nil); err != nil {
					return fmt.Errorf("scanner: aggregate: %w", err)
				}
			}
		default:
			continue
		}
	}
}

func (s *Scanner) validate() error {
	if s.outputPath == "" {
		return fmt.Errorf("scanner: output path is required")
	}
	if !s.indexExternalFiles && s.homeDir == "" {
		return fmt.Errorf("scanner: home dir is required unless index-external-files is set")
	}
	return nil
}

// adjustArguments normalizes one TU's argv per the fixed "arguments
// adjuster": strip explicit outputs, force syntax-only parsing, and
// request a detailed preprocessing record so the front end can walk
// #include directives at end of TU.
func adjustArguments(argv []string) []string {
	out := make([]string, 0, len(argv)+3)
	skipNext := false
	for _, a := range argv {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		case a == "-o":
			skipNext = true
		case a == "-c":
			// dropped: replaced by -fsyntax-only below
		default:
			out = append(out, a)
		}
	}
	out = append(out, "-fsyntax-only", "-Xclang", "-detailed-preprocessing-record")
	return out
}
