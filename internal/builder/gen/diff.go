package gen

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies what writing a File would do to the tree
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Created
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "create"
	case Modified:
		return "modify"
	default:
		return "unchanged"
	}
}

// Change is the planned effect of writing a single file
type Change struct {
	File
	Kind  ChangeKind
	Diffs []diffmatchpatch.Diff
}

// PlanChanges compares files against what is currently under root without writing anything
func PlanChanges(root string, files []File) ([]Change, error) {
	dmp := diffmatchpatch.New()
	changes := make([]Change, 0, len(files))

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
		switch {
		case errors.Is(err, os.ErrNotExist):
			changes = append(changes, Change{File: f, Kind: Created})
			continue
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}

		old := string(data)
		if old == f.Content {
			changes = append(changes, Change{File: f, Kind: Unchanged})
			continue
		}

		// line-level diff
		a, b, lines := dmp.DiffLinesToChars(old, f.Content)
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
		changes = append(changes, Change{File: f, Kind: Modified, Diffs: diffs})
	}

	return changes, nil
}

// WriteDiff prints changes in a unified-diff-like form
func WriteDiff(w io.Writer, changes []Change) {
	for _, c := range changes {
		switch c.Kind {
		case Unchanged:
			fmt.Fprintf(w, "%s %s\n", color.HiBlackString("unchanged"), c.Path)
		case Created:
			fmt.Fprintf(w, "%s %s\n", color.HiGreenString("create"), c.Path)
			writeLines(w, "+", c.Content, color.GreenString)
		case Modified:
			fmt.Fprintf(w, "%s %s\n", color.YellowString("modify"), c.Path)
			for _, d := range c.Diffs {
				switch d.Type {
				case diffmatchpatch.DiffInsert:
					writeLines(w, "+", d.Text, color.GreenString)
				case diffmatchpatch.DiffDelete:
					writeLines(w, "-", d.Text, color.RedString)
				case diffmatchpatch.DiffEqual:
					writeLines(w, " ", d.Text, fmt.Sprintf)
				}
			}
		}
	}
}

func writeLines(w io.Writer, prefix, text string, paint func(format string, a ...any) string) {
	text = strings.TrimSuffix(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(w, paint("%s", prefix+line))
	}
}
