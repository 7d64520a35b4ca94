package gen

import (
	"strconv"
	"strings"
)

const (
	CMakeMinimumVersion = "3.16" // target_precompile_headers
	CMakeListsFile      = "CMakeLists.txt"

	ExecutableTarget = "main"
	IncludeDir       = "include"
	SourceDir        = "src"

	cudaRuntimeTarget = "CUDA::cudart"
)

// CMakeGen holds everything CMakeLists.txt is derived from
type CMakeGen struct {
	Name           string
	CxxStandard    int
	CUDA           bool
	Libraries      []string
	Links          []string
	CompileOptions []string
}

func (g *CMakeGen) BuildFile() string { return CMakeListsFile }

// cmakeClause renders one part of CMakeLists.txt, or "" to omit it
type cmakeClause func(g *CMakeGen) string

// cmakeClauses is the fixed emission order of CMakeLists.txt
var cmakeClauses = []cmakeClause{
	minimumVersionClause,
	projectClause,
	cxxStandardClause,
	executableClause,
	includeDirsClause,
	precompiledHeaderClause,
	enableCUDAClause,
	findPackagesClause,
	findCUDAToolkitClause,
	compileOptionsClause,
	targetIncludeDirsClause,
	linkLibrariesClause,
}

func minimumVersionClause(*CMakeGen) string {
	return command("cmake_minimum_required", "VERSION", CMakeMinimumVersion) + "\n"
}

func projectClause(g *CMakeGen) string {
	return command("project", g.Name) + "\n\n"
}

func cxxStandardClause(g *CMakeGen) string {
	return command("set", "CMAKE_CXX_STANDARD", strconv.Itoa(g.CxxStandard)) + "\n\n"
}

func executableClause(*CMakeGen) string {
	return command("add_executable", ExecutableTarget, EntryPointPath) + "\n\n"
}

func includeDirsClause(*CMakeGen) string {
	return command("include_directories", IncludeDir) + "\n\n"
}

func precompiledHeaderClause(*CMakeGen) string {
	return command("target_precompile_headers", ExecutableTarget, "PRIVATE", UmbrellaHeaderPath) + "\n\n"
}

func enableCUDAClause(g *CMakeGen) string {
	if !g.CUDA {
		return ""
	}
	return command("enable_language", "CUDA") + "\n"
}

func findPackagesClause(g *CMakeGen) string {
	var sb strings.Builder
	for _, lib := range g.Libraries {
		writeln(&sb, command("find_package", lib, "REQUIRED"))
	}
	return sb.String()
}

func findCUDAToolkitClause(g *CMakeGen) string {
	if !g.CUDA {
		return ""
	}
	return command("find_package", "CUDAToolkit", "REQUIRED") + "\n"
}

func compileOptionsClause(g *CMakeGen) string {
	if len(g.CompileOptions) == 0 {
		return ""
	}
	args := append([]string{ExecutableTarget, "PRIVATE"}, g.CompileOptions...)
	return command("target_compile_options", args...) + "\n\n"
}

func targetIncludeDirsClause(*CMakeGen) string {
	return command("target_include_directories", ExecutableTarget, "PRIVATE", IncludeDir) + "\n"
}

func linkLibrariesClause(g *CMakeGen) string {
	args := []string{ExecutableTarget, "PRIVATE"}
	if g.CUDA {
		args = append(args, cudaRuntimeTarget)
	}
	args = append(args, g.Links...)
	return command("target_link_libraries", args...) + "\n"
}

// Generate renders CMakeLists.txt. The output depends only on g.
func (g *CMakeGen) Generate() string {
	var sb strings.Builder
	for _, clause := range cmakeClauses {
		write(&sb, clause(g))
	}
	return sb.String()
}

// File returns the rendered descriptor as a project file
func (g *CMakeGen) File() File {
	return File{Path: g.BuildFile(), Content: g.Generate()}
}
