package report

import (
	"strings"
	"testing"
	"time"
)

func TestWriteReadRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Minute)

	in := Report{
		ProjectName:    "demo",
		ProjectVersion: "1.0",
		HomeDir:        "/proj",
		RootDir:        "/proj/build",
		Filters:        []string{"**/*.cpp", "**/*.hpp"},
		StartedAt:      started,
		FinishedAt:     finished,
		TranslationUnitsTotal:  10,
		TranslationUnitsFailed: 1,
		FailedFiles:    []string{"/proj/bad.cpp"},
	}

	var buf strings.Builder
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := Read(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if out.ProjectName != in.ProjectName || out.ProjectVersion != in.ProjectVersion {
		t.Errorf("project fields mismatch: %+v", out)
	}
	if out.HomeDir != in.HomeDir || out.RootDir != in.RootDir {
		t.Errorf("scan fields mismatch: %+v", out)
	}
	if len(out.Filters) != 2 {
		t.Errorf("filters mismatch: %v", out.Filters)
	}
	if out.TranslationUnitsTotal != 10 || out.TranslationUnitsFailed != 1 {
		t.Errorf("counts mismatch: %+v", out)
	}
	if len(out.FailedFiles) != 1 || out.FailedFiles[0] != "/proj/bad.cpp" {
		t.Errorf("failed files mismatch: %v", out.FailedFiles)
	}
	if !out.StartedAt.Equal(started) || !out.FinishedAt.Equal(finished) {
		t.Errorf("timestamps mismatch: started=%v finished=%v", out.StartedAt, out.FinishedAt)
	}
}
