package builder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybcg-build/ybcg/internal/builder/gen"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0o644))
}

func readFile(t *testing.T, elem ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(elem...))
	require.NoError(t, err)
	return string(data)
}

// listStubs returns every file under include/ and src/, slash-separated and sorted
func listStubs(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	for _, sub := range []string{gen.IncludeDir, gen.SourceDir} {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		require.NoError(t, err)
		for _, e := range entries {
			files = append(files, sub+"/"+e.Name())
		}
	}
	return files
}

func TestGenerateDemo(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
project_name: Demo
cpp_standard: 20
cpp: [foo]
libraries: [Boost]
link: [pthread]
`)

	b, err := NewBuilderInDirectory(dir, "")
	require.NoError(t, err)

	res, err := b.Generate(context.Background(), Options{SkipBuild: true, Stdout: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Nil(t, res.Build)

	assert.Equal(t, []string{
		"include/foo.hpp",
		"include/utils.hpp",
		"src/foo.cpp",
		"src/main.cpp",
	}, listStubs(t, dir))

	cmake := readFile(t, dir, "CMakeLists.txt")
	assert.Contains(t, cmake, "project(Demo)\n")
	assert.Contains(t, cmake, "set(CMAKE_CXX_STANDARD 20)\n")
	assert.Contains(t, cmake, "find_package(Boost REQUIRED)\n")
	assert.Contains(t, cmake, "target_link_libraries(main PRIVATE pthread)\n")
	assert.NotContains(t, cmake, "CUDA")
	assert.NotContains(t, cmake, "target_compile_options")

	assert.Equal(t, "#include \"../include/foo.hpp\"\n\n", readFile(t, dir, "src", "foo.cpp"))
}

func TestGenerateEmptyConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	b, err := NewBuilderInDirectory(dir, DefaultConfigFile)
	require.NoError(t, err)
	_, err = b.Generate(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"include/utils.hpp", "src/main.cpp"}, listStubs(t, dir))

	cmake := readFile(t, dir, "CMakeLists.txt")
	assert.Contains(t, cmake, "project(MyProject)\n")
	assert.Contains(t, cmake, "set(CMAKE_CXX_STANDARD 17)\n")
	assert.NotContains(t, cmake, "find_package")
	assert.Contains(t, cmake, "target_link_libraries(main PRIVATE)\n")
}

func TestGenerateCUDA(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
languages: [cpp, cuda]
cpp: [host]
cuda: [kernels, reduce]
`)

	b, err := NewBuilderInDirectory(dir, "")
	require.NoError(t, err)
	_, err = b.Generate(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"include/host.hpp",
		"include/kernels.cuh",
		"include/reduce.cuh",
		"include/utils.hpp",
		"src/host.cpp",
		"src/kernels.cu",
		"src/main.cpp",
		"src/reduce.cu",
	}, listStubs(t, dir))

	assert.Contains(t, readFile(t, dir, "include", "utils.hpp"), "#include <cuda_runtime.h>\n")
	assert.Equal(t, "#include \"../include/reduce.cuh\"\n\n", readFile(t, dir, "src", "reduce.cu"))

	cmake := readFile(t, dir, "CMakeLists.txt")
	assert.Contains(t, cmake, "enable_language(CUDA)\n")
	assert.Contains(t, cmake, "find_package(CUDAToolkit REQUIRED)\n")
	assert.Contains(t, cmake, "target_link_libraries(main PRIVATE CUDA::cudart)\n")
}

func TestGenerateOverwrites(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cpp: [foo]\n")

	b, err := NewBuilderInDirectory(dir, "")
	require.NoError(t, err)
	_, err = b.Generate(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "include", "foo.hpp"), []byte("// edited\n"), 0o644))

	_, err = b.Generate(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)
	assert.Equal(t, "#pragma once\n\n", readFile(t, dir, "include", "foo.hpp"))
}

func TestGenerateConfigErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cpp: [foo\n")

	_, err := NewBuilderInDirectory(dir, "")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1) // only the config
}

func TestNewBuilderMissingConfig(t *testing.T) {
	_, err := NewBuilderInDirectory(t.TempDir(), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerateDryRun(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cpp: [foo]\n")

	b, err := NewBuilderInDirectory(dir, "")
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := b.Generate(context.Background(), Options{DryRun: true, Stdout: &out})
	require.NoError(t, err)
	require.Len(t, res.Changes, len(res.Files))
	for _, c := range res.Changes {
		assert.Equal(t, gen.Created, c.Kind, c.Path)
	}
	assert.Contains(t, out.String(), "include/foo.hpp")

	_, err = os.Stat(filepath.Join(dir, gen.IncludeDir))
	assert.True(t, os.IsNotExist(err), "dry run must not create directories")
}

func TestGenerateBuildFailurePolicy(t *testing.T) {
	dir := t.TempDir()
	env := testEnv()
	env.Environ = map[string]string{"CMAKE": filepath.Join(dir, "no-such-cmake")}
	cfg, err := ParseConfig(nil, "yaml", env)
	require.NoError(t, err)
	b := NewBuilder(dir, cfg, env)

	res, err := b.Generate(context.Background(), Options{Stdout: &bytes.Buffer{}})
	var buildErr *gen.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.NotNil(t, res.Build)
	assert.False(t, res.Build.OK())
	assert.Equal(t, gen.StepConfigure, res.Build.FirstFailure().Step)

	// the tree is still there
	assert.FileExists(t, filepath.Join(dir, "CMakeLists.txt"))

	for _, policy := range []gen.FailurePolicy{gen.FailurePolicyWarn, gen.FailurePolicyIgnore} {
		res, err := b.Generate(context.Background(), Options{OnBuildFailure: policy, Stdout: &bytes.Buffer{}})
		require.NoError(t, err, policy)
		assert.False(t, res.Build.OK())
	}
}

func TestGenerateInitGit(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	b, err := NewBuilderInDirectory(dir, "")
	require.NoError(t, err)

	res, err := b.Generate(context.Background(), Options{SkipBuild: true, InitGit: true})
	require.NoError(t, err)
	assert.True(t, res.GitInitialized)
	assert.Equal(t, "build/\n", readFile(t, dir, ".gitignore"))

	_, err = git.PlainOpen(dir)
	require.NoError(t, err)

	// second run finds the existing repository
	res, err = b.Generate(context.Background(), Options{SkipBuild: true, InitGit: true})
	require.NoError(t, err)
	assert.False(t, res.GitInitialized)
}

func TestInitGitKeepsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.o\n"), 0o644))

	created, err := initGitRepo(dir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "*.o\n", readFile(t, dir, ".gitignore"))
}

func TestFilesOrder(t *testing.T) {
	cfg := &ProjectConfig{
		ProjectName: "p",
		CxxStandard: 17,
		Languages:   []string{LanguageCUDA},
		Cpp:         []string{"a"},
		Cuda:        []string{"k"},
	}
	var paths []string
	for _, f := range NewBuilder(t.TempDir(), cfg, ConfigEnv{}).Files() {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"include/a.hpp", "src/a.cpp",
		"include/k.cuh", "src/k.cu",
		"include/utils.hpp", "src/main.cpp",
		"CMakeLists.txt",
	}, paths)
}

func TestBuildAndRunDryRun(t *testing.T) {
	b := NewBuilder(t.TempDir(), &ProjectConfig{ProjectName: "p", CxxStandard: 17}, ConfigEnv{})
	err := b.BuildAndRun(context.Background(), nil, Options{DryRun: true})
	assert.ErrorIs(t, err, errDryRunNoExec)
}

func TestGenerateRelativeConfigPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf", "p.toml"), []byte("project_name = \"Tommy\"\n"), 0o644))

	b, err := NewBuilderInDirectory(dir, filepath.Join("conf", "p.toml"))
	require.NoError(t, err)
	assert.Equal(t, "Tommy", b.Config().ProjectName)
	assert.True(t, filepath.IsAbs(b.Dir()))
}
