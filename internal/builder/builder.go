package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/ybcg-build/ybcg/internal/builder/gen"
	"github.com/ybcg-build/ybcg/internal/msg"
)

var (
	errDryRunNoExec = errors.New("can't run the program in a dry run")
)

// Options control a single generation run
type Options struct {
	SkipBuild      bool
	DryRun         bool
	InitGit        bool
	OnBuildFailure gen.FailurePolicy
	// Stdout receives dry-run diffs and smoke build output, defaults to os.Stdout
	Stdout io.Writer
}

// Result describes what a generation run did
type Result struct {
	Files          []gen.File
	Changes        []gen.Change // only set for dry runs
	Build          *gen.Report  // nil when the smoke build did not run
	GitInitialized bool
}

type Builder struct {
	cfg     *ProjectConfig
	basedir string
	env     ConfigEnv
}

// NewBuilderInDirectory loads the config for a project rooted at path.
// A relative configPath is resolved against path; "" means project_config.yaml.
func NewBuilderInDirectory(path, configPath string) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = DefaultConfigFile
	}
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(path, configPath)
	}

	env, err := NewConfigEnv(path)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(configPath, env)
	if err != nil {
		return nil, err
	}
	return NewBuilder(path, cfg, env), nil
}

func NewBuilder(basedir string, cfg *ProjectConfig, env ConfigEnv) *Builder {
	return &Builder{cfg: cfg, basedir: basedir, env: env}
}

func (b *Builder) Config() *ProjectConfig { return b.cfg }

// Dir returns the absolute project root
func (b *Builder) Dir() string { return b.basedir }

func (b *Builder) cmakeGen() *gen.CMakeGen {
	return &gen.CMakeGen{
		Name:           b.cfg.ProjectName,
		CxxStandard:    b.cfg.CxxStandard,
		CUDA:           b.cfg.HasCUDA(),
		Libraries:      slices.Clone(b.cfg.Libraries),
		Links:          slices.Clone(b.cfg.Link),
		CompileOptions: slices.Clone(b.cfg.CompileOptions),
	}
}

// Files returns every generated file in emission order: native stubs, CUDA
// stubs, the umbrella header, the entry point, then CMakeLists.txt.
func (b *Builder) Files() []gen.File {
	var files []gen.File
	files = append(files, gen.ComponentFiles(b.cfg.Cpp, gen.Native)...)
	files = append(files, gen.ComponentFiles(b.cfg.Cuda, gen.CUDA)...)
	files = append(files, gen.UmbrellaHeader(b.cfg.HasCUDA()), gen.EntryPoint())
	files = append(files, b.cmakeGen().File())
	return files
}

// Generate writes the project tree and runs the smoke build. The first error
// stops the run; files written before it are left in place.
func (b *Builder) Generate(ctx context.Context, opts Options) (*Result, error) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	res := &Result{Files: b.Files()}

	if opts.DryRun {
		changes, err := gen.PlanChanges(b.basedir, res.Files)
		if err != nil {
			return res, err
		}
		gen.WriteDiff(out, changes)
		res.Changes = changes
		return res, nil
	}

	for _, dir := range []string{gen.IncludeDir, gen.SourceDir} {
		if err := os.MkdirAll(filepath.Join(b.basedir, dir), 0o755); err != nil {
			return res, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if len(b.cfg.Cuda) > 0 && !b.cfg.HasCUDA() {
		msg.Warn("cuda components are declared but %q is not in languages; CMake will not enable CUDA", LanguageCUDA)
	}

	if err := gen.WriteFiles(b.basedir, res.Files, func(f gen.File) { msg.Created(f.Path) }); err != nil {
		return res, err
	}

	if opts.InitGit {
		created, err := initGitRepo(b.basedir)
		if err != nil {
			return res, fmt.Errorf("failed to initialize git repository: %w", err)
		}
		res.GitInitialized = created
		if created {
			msg.Info("initialized git repository in %s", b.basedir)
		}
	}

	if opts.SkipBuild {
		return res, nil
	}

	trigger := &gen.CMakeTrigger{
		CMake:  findCMake(b.env),
		Env:    b.env.EnvList(),
		Stdout: &msg.IndentWriter{Indent: "    ", W: out},
		Stderr: &msg.IndentWriter{Indent: "    ", W: os.Stderr},
	}
	report := trigger.Run(ctx, b.basedir)
	res.Build = &report

	policy := opts.OnBuildFailure
	if policy == "" {
		policy = gen.FailurePolicyFail
	}
	return res, policy.Handle(report)
}

// BuildAndRun generates and builds the project, then runs the executable with args
func (b *Builder) BuildAndRun(ctx context.Context, args []string, opts Options) error {
	if opts.DryRun {
		return errDryRunNoExec
	}
	opts.SkipBuild = false
	opts.OnBuildFailure = gen.FailurePolicyFail

	if _, err := b.Generate(ctx, opts); err != nil {
		return err
	}

	outputName := gen.ExecutableTarget
	if runtime.GOOS == "windows" {
		outputName += ".exe"
	}

	cmd := exec.CommandContext(ctx, filepath.Join(b.basedir, gen.BuildDir, outputName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
