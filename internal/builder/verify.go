package builder

import (
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ybcg-build/ybcg/internal/builder/gen"
)

// stubPatterns match every file the stub emitter can produce
var stubPatterns = []string{
	gen.IncludeDir + "/**/*.{hpp,cuh}",
	gen.SourceDir + "/**/*.{cpp,cu}",
}

// VerifyReport lists the differences between a config and the stubs on disk
type VerifyReport struct {
	Missing []string // declared but not on disk
	Orphans []string // on disk but not declared
}

func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Orphans) == 0
}

// Verify checks that every component in cfg has its header/source pair under
// dir and that no stub exists for a component that is no longer declared.
func Verify(dir string, cfg *ProjectConfig) (*VerifyReport, error) {
	b := NewBuilder(dir, cfg, ConfigEnv{})

	expected := make(map[string]bool)
	for _, f := range b.Files() {
		if f.Path != gen.CMakeListsFile {
			expected[f.Path] = true
		}
	}

	found := make(map[string]bool)
	fsys := os.DirFS(dir)
	for _, pat := range stubPatterns {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			found[match] = true
		}
	}

	report := &VerifyReport{}
	for path := range expected {
		if !found[path] {
			report.Missing = append(report.Missing, path)
		}
	}
	for path := range found {
		if !expected[path] {
			report.Orphans = append(report.Orphans, path)
		}
	}
	slices.Sort(report.Missing)
	slices.Sort(report.Orphans)

	return report, nil
}
