// Package report writes and reads a run report: a KDL document
// summarizing how many translation units were indexed, how many failed,
// and which filters and directories were in effect. It is diagnostic
// output, not part of the snapshot schema itself. The scanner and the
// run command do not call it, so a scan writes no report on its own.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Report is one run's summary.
type Report struct {
	ProjectName    string
	ProjectVersion string
	HomeDir        string
	RootDir        string
	Filters        []string
	StartedAt      time.Time
	FinishedAt     time.Time
	TranslationUnitsTotal  int
	TranslationUnitsFailed int
	FailedFiles    []string
}

// Write serializes r as a KDL document. kdl-go's document model is
// built for parsing existing text, not authoring it, so this writes
// the small fixed shape directly rather than building a
// document.Document tree just to immediately stringify it.
func Write(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "run {\n")
	fmt.Fprintf(&b, "    started %q\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "    finished %q\n", r.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "}\n")

	fmt.Fprintf(&b, "project {\n")
	if r.ProjectName != "" {
		fmt.Fprintf(&b, "    name %q\n", r.ProjectName)
	}
	if r.ProjectVersion != "" {
		fmt.Fprintf(&b, "    version %q\n", r.ProjectVersion)
	}
	fmt.Fprintf(&b, "}\n")

	fmt.Fprintf(&b, "scan {\n")
	if r.HomeDir != "" {
		fmt.Fprintf(&b, "    home %q\n", r.HomeDir)
	}
	if r.RootDir != "" {
		fmt.Fprintf(&b, "    root %q\n", r.RootDir)
	}
	if len(r.Filters) > 0 {
		fmt.Fprintf(&b, "    filters {\n")
		for _, f := range r.Filters {
			fmt.Fprintf(&b, "        pattern %q\n", f)
		}
		fmt.Fprintf(&b, "    }\n")
	}
	fmt.Fprintf(&b, "}\n")

	fmt.Fprintf(&b, "translation-units {\n")
	fmt.Fprintf(&b, "    total %d\n", r.TranslationUnitsTotal)
	fmt.Fprintf(&b, "    failed %d\n", r.TranslationUnitsFailed)
	for _, f := range r.FailedFiles {
		fmt.Fprintf(&b, "    failed-file %q\n", f)
	}
	fmt.Fprintf(&b, "}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Read parses a report previously produced by Write.
func Read(r io.Reader) (Report, error) {
	doc, err := kdl.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("report: parse: %w", err)
	}

	var out Report
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "run":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "started":
					if s, ok := firstStringArg(cn); ok {
						out.StartedAt, _ = time.Parse(time.RFC3339, s)
					}
				case "finished":
					if s, ok := firstStringArg(cn); ok {
						out.FinishedAt, _ = time.Parse(time.RFC3339, s)
					}
				}
			}
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "name":
					if s, ok := firstStringArg(cn); ok {
						out.ProjectName = s
					}
				case "version":
					if s, ok := firstStringArg(cn); ok {
						out.ProjectVersion = s
					}
				}
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "home":
					if s, ok := firstStringArg(cn); ok {
						out.HomeDir = s
					}
				case "root":
					if s, ok := firstStringArg(cn); ok {
						out.RootDir = s
					}
				case "filters":
					for _, pn := range cn.Children {
						if nodeName(pn) == "pattern" {
							if s, ok := firstStringArg(pn); ok {
								out.Filters = append(out.Filters, s)
							}
						}
					}
				}
			}
		case "translation-units":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "total":
					if v, ok := firstIntArg(cn); ok {
						out.TranslationUnitsTotal = v
					}
				case "failed":
					if v, ok := firstIntArg(cn); ok {
						out.TranslationUnitsFailed = v
					}
				case "failed-file":
					if s, ok := firstStringArg(cn); ok {
						out.FailedFiles = append(out.FailedFiles, s)
					}
				}
			}
		}
	}
	return out, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstIntArg(n *document.Node) (int, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
