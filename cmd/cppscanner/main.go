// Command cppscanner scans a C++ project into a snapshot database, or
// merges snapshots produced by separate scans, or serves one over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/strandfield/cppscanner-go/internal/cmakeapi"
	"github.com/strandfield/cppscanner-go/internal/config"
	"github.com/strandfield/cppscanner-go/internal/frontend/treesitter"
	"github.com/strandfield/cppscanner-go/internal/logging"
	"github.com/strandfield/cppscanner-go/internal/mcpserver"
	"github.com/strandfield/cppscanner-go/internal/merger"
	"github.com/strandfield/cppscanner-go/internal/queue"
	"github.com/strandfield/cppscanner-go/internal/scanner"
	"github.com/strandfield/cppscanner-go/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "cppscanner",
		Usage:   "index C++ source code into a SQLite snapshot",
		Version: version.Version,
		Commands: []*cli.Command{
			runCommand(),
			mergeCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cppscanner: %v\n", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "scan a project and write a snapshot database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".cppscanner.toml", Usage: "path to the project config file"},
			&cli.StringFlag{Name: "home", Usage: "project home directory (overrides config)"},
			&cli.StringFlag{Name: "root", Usage: "directory bounding which files are indexed when --index-external-files is set"},
			&cli.StringFlag{Name: "compile-commands", Usage: "path to a compile_commands.json"},
			&cli.StringFlag{Name: "cmake-build", Usage: "CMake build directory to read codemodel-v2 from"},
			&cli.StringFlag{Name: "cmake-target", Usage: "restrict --cmake-build to one target"},
			&cli.StringSliceFlag{Name: "input", Usage: "source file or directory to scan directly"},
			&cli.StringSliceFlag{Name: "filter", Usage: "glob pattern a file must match to be indexed"},
			&cli.StringSliceFlag{Name: "filter-tu", Aliases: []string{"filter_tu"}, Usage: "glob pattern a translation unit's main file must match"},
			&cli.StringSliceFlag{Name: "compile-arg", Usage: "extra compiler argument applied to every translation unit"},
			&cli.BoolFlag{Name: "index-external-files", Usage: "index files outside the home directory"},
			&cli.BoolFlag{Name: "index-local-symbols", Usage: "index symbols with internal linkage"},
			&cli.IntFlag{Name: "threads", Aliases: []string{"j"}, Usage: "number of parsing threads"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "snapshot database to write"},
			&cli.BoolFlag{Name: "overwrite", Usage: "overwrite an existing output database"},
			&cli.StringFlag{Name: "project-name", Usage: "project name recorded in the snapshot"},
			&cli.StringFlag{Name: "project-version", Usage: "project version recorded in the snapshot"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)

	s := scanner.New()

	home := firstNonEmpty(c.String("home"), cfg.Scan.Home)
	s.SetHomeDir(home)
	s.SetRootDir(firstNonEmpty(c.String("root"), cfg.Scan.Root))
	s.SetIndexExternalFiles(c.Bool("index-external-files") || cfg.Scan.IndexExternalFiles)
	s.SetIndexLocalSymbols(c.IsSet("index-local-symbols") || cfg.Scan.IndexLocalSymbols)
	s.SetFilters(firstNonEmptySlice(c.StringSlice("filter"), cfg.Scan.Filters))
	s.SetTranslationUnitFilters(firstNonEmptySlice(c.StringSlice("filter-tu"), cfg.Scan.TranslationUnitFilters))
	s.SetNumberOfParsingThreads(firstNonZero(c.Int("threads"), cfg.Scan.Threads))
	s.SetCompilationArguments(c.StringSlice("compile-arg"))
	s.SetOutputPath(c.String("output"))
	s.SetOverwrite(c.Bool("overwrite"))
	s.SetProjectName(firstNonEmpty(c.String("project-name"), cfg.Project.Name))
	s.SetProjectVersion(firstNonEmpty(c.String("project-version"), cfg.Project.Version))

	drv, err := treesitter.New()
	if err != nil {
		return fmt.Errorf("build front end: %w", err)
	}
	s.SetFrontEnd(drv)

	invocations, err := collectInvocations(c)
	if err != nil {
		return err
	}
	s.SetInvocations(invocations)

	ctx, cancel := signalContext()
	defer cancel()

	if err := s.Run(ctx); err != nil {
		return err
	}
	logging.Scan("wrote %d translation units to %s", len(invocations), c.String("output"))
	return nil
}

func collectInvocations(c *cli.Context) ([]queue.ToolInvocation, error) {
	var invocations []queue.ToolInvocation

	if path := c.String("compile-commands"); path != "" {
		cc, err := scanner.LoadCompileCommands(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		invocations = append(invocations, cc...)
	}

	if buildDir := c.String("cmake-build"); buildDir != "" {
		idx, err := cmakeapi.Read(buildDir)
		if err != nil {
			return nil, fmt.Errorf("read cmake codemodel: %w", err)
		}
		invocations = append(invocations, idx.Invocations(c.String("cmake-target"))...)
	}

	if inputs := c.StringSlice("input"); len(inputs) > 0 {
		fromInputs, err := scanner.LoadInputList(inputs)
		if err != nil {
			return nil, err
		}
		invocations = append(invocations, fromInputs...)
	}

	if len(invocations) == 0 {
		return nil, fmt.Errorf("no sources to scan: pass --compile-commands, --cmake-build, or --input")
	}
	return invocations, nil
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "merge several snapshot databases into one",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "snapshot database to merge in"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "snapshot database to write"},
			&cli.StringFlag{Name: "home", Usage: "project home directory recorded in the merged snapshot"},
		},
		Action: func(c *cli.Context) error {
			m := merger.New()
			m.SetInputs(c.StringSlice("input"))
			m.SetOutputPath(c.String("output"))
			if home := c.String("home"); home != "" {
				m.SetProjectHome(home)
			}

			ctx, cancel := signalContext()
			defer cancel()
			if err := m.Run(ctx); err != nil {
				return err
			}
			logging.Merge("merged %d snapshots into %s", len(c.StringSlice("input")), c.String("output"))
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "answer MCP queries over an existing snapshot database",
		ArgsUsage: "<snapshot.db>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("serve: snapshot path required")
			}

			ctx, cancel := signalContext()
			defer cancel()

			srv, err := mcpserver.Open(ctx, path)
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.Run(ctx)
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmptySlice(slices ...[]string) []string {
	for _, s := range slices {
		if len(s) > 0 {
			return s
		}
	}
	return nil
}
