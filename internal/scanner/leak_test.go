//go:build leaktests
// +build leaktests

package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/strandfield/cppscanner-go/internal/queue"
)

// TestRunLeavesNoGoroutinesBehind exercises the worker pool + drain loop
// end to end and checks Run's goroutines (one per thread, plus the
// g.Wait() watcher) have all exited by the time Run returns.
func TestRunLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	a := writeSource(t, dir, "a.cpp")
	b := writeSource(t, dir, "b.cpp")

	s := New()
	s.SetHomeDir(dir)
	s.SetNumberOfParsingThreads(4)
	s.SetFrontEnd(&fakeDriver{})
	s.SetOutputPath(filepath.Join(dir, "out.db"))
	s.SetInvocations([]queue.ToolInvocation{
		{Filename: a},
		{Filename: b},
	})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
