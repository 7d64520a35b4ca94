//go:build property
// +build property

package gen

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	pgen "github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCMakeGenProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genCMake := func(name string, std int, cuda bool, libs, links, opts []string) *CMakeGen {
		return &CMakeGen{
			Name:           name,
			CxxStandard:    std,
			CUDA:           cuda,
			Libraries:      libs,
			Links:          links,
			CompileOptions: opts,
		}
	}

	properties.Property("output is deterministic", prop.ForAll(
		func(name string, cuda bool, libs, links, opts []string) bool {
			a := genCMake(name, 17, cuda, libs, links, opts).Generate()
			b := genCMake(name, 17, cuda, libs, links, opts).Generate()
			return a == b
		},
		pgen.Identifier(),
		pgen.Bool(),
		pgen.SliceOf(pgen.Identifier()),
		pgen.SliceOf(pgen.Identifier()),
		pgen.SliceOf(pgen.Identifier()),
	))

	properties.Property("cuda declarations appear iff cuda is enabled", prop.ForAll(
		func(cuda bool, links []string) bool {
			out := genCMake("p", 20, cuda, nil, links, nil).Generate()
			return strings.Contains(out, "find_package(CUDAToolkit REQUIRED)") == cuda &&
				strings.Contains(out, "CUDA::cudart") == cuda
		},
		pgen.Bool(),
		pgen.SliceOf(pgen.Identifier()),
	))

	properties.Property("compile options appear iff non-empty", prop.ForAll(
		func(opts []string) bool {
			out := genCMake("p", 20, false, nil, nil, opts).Generate()
			return strings.Contains(out, "target_compile_options(") == (len(opts) > 0)
		},
		pgen.SliceOf(pgen.Identifier()),
	))

	properties.Property("one find_package per library, in order", prop.ForAll(
		func(libs []string) bool {
			out := genCMake("p", 20, false, libs, nil, nil).Generate()
			var found []string
			for _, line := range strings.Split(out, "\n") {
				if strings.HasPrefix(line, "find_package(") {
					found = append(found, strings.TrimSuffix(strings.TrimPrefix(line, "find_package("), " REQUIRED)"))
				}
			}
			if len(found) != len(libs) {
				return false
			}
			for i := range libs {
				if found[i] != libs[i] {
					return false
				}
			}
			return true
		},
		pgen.SliceOf(pgen.Identifier()),
	))

	properties.TestingRun(t)
}
