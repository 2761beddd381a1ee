// Package logging provides the scanner's structured debug log.
//
// It mirrors the way the rest of the pipeline is built: a single
// mutex-guarded writer, enabled by an environment variable or a build
// flag, with component-tagged helpers instead of bare fmt.Println calls.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be set at build time:
// go build -ldflags "-X github.com/strandfield/cppscanner-go/internal/logging.EnableDebug=true"
var EnableDebug = "false"

// MCPMode suppresses all log output to stdio while the MCP query server
// is speaking the protocol over stdin/stdout.
var MCPMode = false

var (
	output io.Writer
	file   *os.File
	mu     sync.Mutex
)

// SetMCPMode toggles MCPMode.
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetOutput sets the writer debug output is sent to. nil disables it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile opens a timestamped log file under the OS temp dir and
// routes debug output to it. Returns the created path.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "cppscanner-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("scan-%s.log", time.Now().Format("2006-01-02T150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("create log file: %w", err)
	}

	file = f
	output = f
	return path, nil
}

// Close closes the log file opened by InitLogFile, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		err := file.Close()
		file = nil
		output = nil
		return err
	}
	return nil
}

// Enabled reports whether debug logging is currently active.
func Enabled() bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("CPPSCANNER_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Log writes a component-tagged debug line, e.g. Log("scan", "enqueued %d TUs", n).
func Log(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// Scan logs a message tagged "scan" (Scanner orchestration).
func Scan(format string, args ...interface{}) { Log("scan", format, args...) }

// Index logs a message tagged "index" (per-TU Indexer).
func Index(format string, args ...interface{}) { Log("index", format, args...) }

// Aggregate logs a message tagged "aggregate" (SnapshotAggregator).
func Aggregate(format string, args ...interface{}) { Log("aggregate", format, args...) }

// Merge logs a message tagged "merge" (SnapshotMerger).
func Merge(format string, args ...interface{}) { Log("merge", format, args...) }

// MCP logs a message tagged "mcp" (query server).
func MCP(format string, args ...interface{}) { Log("mcp", format, args...) }

// Warn records a non-fatal error to the debug log so it isn't lost when
// logging is disabled but someone wants to replay with CPPSCANNER_DEBUG=1.
func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if MCPMode {
		return
	}
	w := writer()
	if w != nil {
		fmt.Fprintf(w, "[WARN] %s\n", msg)
	}
}
