package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile  = "project_config.yaml"
	DefaultProjectName = "MyProject"
	DefaultCxxStandard = 17

	LanguageCxx  = "cpp"
	LanguageCUDA = "cuda"

	whenKey = "when"
)

var (
	ErrInvalidConfig = errors.New("invalid project config")

	knownLanguages    = []string{LanguageCxx, LanguageCUDA}
	knownCxxStandards = []int{98, 11, 14, 17, 20, 23, 26}
)

// ConfigError describes a single rejected field of a project config
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// ProjectConfig is the validated, defaulted form of project_config.yaml.
// It is not modified after LoadConfig returns.
type ProjectConfig struct {
	ProjectName    string
	CxxStandard    int
	Languages      []string
	Cpp            []string
	Cuda           []string
	Libraries      []string
	Link           []string
	CompileOptions []string
}

// HasCUDA reports whether the cuda language tag is enabled
func (c *ProjectConfig) HasCUDA() bool {
	return slices.Contains(c.Languages, LanguageCUDA)
}

// rawConfig mirrors the accepted keys. Pointers distinguish absent scalars from zero values.
type rawConfig struct {
	ProjectName    *string  `yaml:"project_name" toml:"project_name"`
	CxxStandard    *int     `yaml:"cpp_standard" toml:"cpp_standard"`
	Languages      []string `yaml:"languages" toml:"languages"`
	Cpp            []string `yaml:"cpp" toml:"cpp"`
	Cuda           []string `yaml:"cuda" toml:"cuda"`
	Libraries      []string `yaml:"libraries" toml:"libraries"`
	Link           []string `yaml:"link" toml:"link"`
	CompileOptions []string `yaml:"compile_options" toml:"compile_options"`
}

// codec is the structured text format a config file is written in
type codec struct {
	name      string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	yamlCodec = codec{name: "yaml", marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
	tomlCodec = codec{name: "toml", marshal: toml.Marshal, unmarshal: toml.Unmarshal}
)

func codecFor(path string) codec {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return tomlCodec
	}
	return yamlCodec
}

func (c codec) decode(data []byte, dst any) error {
	err := c.unmarshal(data, dst)
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		return errors.New(derr.String())
	}
	return err
}

// remarshal round-trips already-decoded data into dst
func (c codec) remarshal(data any, dst any) error {
	b, err := c.marshal(data)
	if err != nil {
		return err
	}
	return c.decode(b, dst)
}

// mergeStructs merges the fields of the src struct into the dst struct.
// Slices are appended, any other non-zero field replaces the destination.
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		builder.WriteString(fmt.Sprintf("%v", result))
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed config data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

// applyOverlays merges every `when` entry whose condition holds into dst.
// Conditions are evaluated in sorted order so the merge result is stable.
func applyOverlays(c codec, whenData any, dst *rawConfig, env ConfigEnv) error {
	whenMap, ok := whenData.(map[string]any)
	if !ok {
		return &ConfigError{Field: whenKey, Reason: "expected a mapping of condition to config"}
	}

	conditions := make([]string, 0, len(whenMap))
	for cond := range whenMap {
		conditions = append(conditions, cond)
	}
	slices.Sort(conditions)

	for _, cond := range conditions {
		program, err := expr.Compile(cond, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("failed to compile condition %s.%q: %w", whenKey, cond, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run condition %s.%q: %w", whenKey, cond, err)
		}
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var overlay rawConfig
		if err := c.remarshal(whenMap[cond], &overlay); err != nil {
			return fmt.Errorf("failed to parse %s.%q: %w", whenKey, cond, err)
		}
		if err := mergeStructs(dst, overlay); err != nil {
			return fmt.Errorf("failed to merge %s.%q: %w", whenKey, cond, err)
		}
	}

	return nil
}

// ParseConfig parses, evaluates and validates config data in the given format ("yaml" or "toml")
func ParseConfig(data []byte, format string, env ConfigEnv) (*ProjectConfig, error) {
	c := yamlCodec
	if format == tomlCodec.name {
		c = tomlCodec
	}

	var rawMap map[string]any
	if err := c.decode(data, &rawMap); err != nil {
		return nil, err
	}
	if rawMap == nil {
		rawMap = map[string]any{}
	}

	processed, err := processExpressions(rawMap, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawMap = processed.(map[string]any)

	whenData, hasWhen := rawMap[whenKey]
	delete(rawMap, whenKey)

	var raw rawConfig
	if err := c.remarshal(rawMap, &raw); err != nil {
		return nil, err
	}
	if hasWhen {
		if err := applyOverlays(c, whenData, &raw, env); err != nil {
			return nil, err
		}
	}

	cfg := raw.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a config file. Files ending in .toml are parsed as TOML, anything else as YAML.
func LoadConfig(path string, env ConfigEnv) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data, codecFor(path).name, env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.ToSlash(path), err)
	}
	return cfg, nil
}

func (r rawConfig) withDefaults() *ProjectConfig {
	cfg := &ProjectConfig{
		ProjectName:    DefaultProjectName,
		CxxStandard:    DefaultCxxStandard,
		Languages:      slices.Clone(r.Languages),
		Cpp:            slices.Clone(r.Cpp),
		Cuda:           slices.Clone(r.Cuda),
		Libraries:      slices.Clone(r.Libraries),
		Link:           slices.Clone(r.Link),
		CompileOptions: slices.Clone(r.CompileOptions),
	}
	if r.ProjectName != nil && *r.ProjectName != "" {
		cfg.ProjectName = *r.ProjectName
	}
	if r.CxxStandard != nil {
		cfg.CxxStandard = *r.CxxStandard
	}
	return cfg
}

// hasUnsafeChars reports characters that would break a bare CMake argument
func hasUnsafeChars(s string) bool {
	return strings.ContainsFunc(s, unicode.IsSpace) || strings.ContainsAny(s, `()"#;$\`)
}

func (c *ProjectConfig) validate() error {
	if hasUnsafeChars(c.ProjectName) {
		return &ConfigError{Field: "project_name", Reason: fmt.Sprintf("%q is not a valid CMake project name", c.ProjectName)}
	}
	if !slices.Contains(knownCxxStandards, c.CxxStandard) {
		return &ConfigError{Field: "cpp_standard", Reason: fmt.Sprintf("unsupported standard %d, expected one of %v", c.CxxStandard, knownCxxStandards)}
	}
	for i, lang := range c.Languages {
		if !slices.Contains(knownLanguages, lang) {
			return &ConfigError{Field: fmt.Sprintf("languages[%d]", i), Reason: fmt.Sprintf("unknown language %q, expected one of %v", lang, knownLanguages)}
		}
	}
	if err := validateComponents("cpp", c.Cpp, "main", "utils"); err != nil {
		return err
	}
	if err := validateComponents("cuda", c.Cuda); err != nil {
		return err
	}
	for _, list := range []struct {
		field string
		items []string
	}{{"libraries", c.Libraries}, {"link", c.Link}} {
		for i, item := range list.items {
			// variables, generator expressions and multi-word find_package arguments pass through as written
			switch {
			case strings.TrimSpace(item) == "":
				return &ConfigError{Field: fmt.Sprintf("%s[%d]", list.field, i), Reason: "empty entry"}
			case strings.ContainsAny(item, "\r\n"):
				return &ConfigError{Field: fmt.Sprintf("%s[%d]", list.field, i), Reason: fmt.Sprintf("%q spans multiple lines", item)}
			}
		}
	}
	for i, opt := range c.CompileOptions {
		if strings.TrimSpace(opt) == "" {
			return &ConfigError{Field: fmt.Sprintf("compile_options[%d]", i), Reason: "empty option"}
		}
	}
	return nil
}

// validateComponents checks that every name maps to exactly one file pair inside include/ and src/
func validateComponents(field string, names []string, reserved ...string) error {
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		where := fmt.Sprintf("%s[%d]", field, i)
		switch {
		case name == "":
			return &ConfigError{Field: where, Reason: "empty component name"}
		case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
			return &ConfigError{Field: where, Reason: fmt.Sprintf("component %q must be a plain file name", name)}
		case hasUnsafeChars(name):
			return &ConfigError{Field: where, Reason: fmt.Sprintf("component %q contains whitespace or reserved characters", name)}
		case slices.Contains(reserved, name):
			return &ConfigError{Field: where, Reason: fmt.Sprintf("component %q clashes with a generated file", name)}
		case seen[name]:
			return &ConfigError{Field: where, Reason: fmt.Sprintf("duplicate component %q", name)}
		}
		seen[name] = true
	}
	return nil
}

//
// expr-lang environment
//

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

// NewConfigEnv builds the expression environment from the process environment.
// A .env file in basedir fills in variables the process does not already set.
func NewConfigEnv(basedir string) (ConfigEnv, error) {
	environ := make(map[string]string)

	dotenv := filepath.Join(basedir, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		vars, err := godotenv.Read(dotenv)
		if err != nil {
			return ConfigEnv{}, fmt.Errorf("failed to read %s: %w", dotenv, err)
		}
		for k, v := range vars {
			environ[k] = v
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return ConfigEnv{}, err
	}

	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}, nil
}

// EnvList returns Environ as sorted KEY=VALUE pairs, the form exec.Cmd.Env expects
func (env ConfigEnv) EnvList() []string {
	list := make([]string, 0, len(env.Environ))
	for k, v := range env.Environ {
		list = append(list, k+"="+v)
	}
	slices.Sort(list)
	return list
}
