// ybcg init [name], ybcg new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ybcg-build/ybcg/internal/builder"
	"github.com/ybcg-build/ybcg/internal/msg"
)

// writefile creates a file unless it already exists
func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		msg.Created(filepath.ToSlash(path))
	} else {
		msg.Warn("%s already exists, leaving it alone", filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "ybcg"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

func sampleConfig(name string, cuda bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "project_name: %s\n", name)
	fmt.Fprintf(&sb, "cpp_standard: %d\n", builder.DefaultCxxStandard)
	if cuda {
		sb.WriteString("languages: [cpp, cuda]\n")
	} else {
		sb.WriteString("languages: [cpp]\n")
	}
	sb.WriteString(`
# one include/<name>.hpp + src/<name>.cpp pair per entry
cpp:
  - hello
`)
	if cuda {
		sb.WriteString(`
# one include/<name>.cuh + src/<name>.cu pair per entry
cuda:
  - kernels
`)
	}
	sb.WriteString(`
# find_package(<lib> REQUIRED) per entry
libraries: []
# target_link_libraries(main PRIVATE ...)
link: []
compile_options:
  - -Wall

# conditional additions, evaluated with target_os, target_arch and environ
when:
  'target_os == "linux"':
    link: [pthread]
`)
	return sb.String()
}

// initIn writes a starter config into an existing directory
func initIn(dir, name string, cuda bool) {
	writefile(sampleConfig(name, cuda), dir, builder.DefaultConfigFile)

	// .gitignore
	writefile(`build/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("Edit %s, then run %s to generate the project.\n",
		color.HiCyanString(filepath.ToSlash(filepath.Join(dir, builder.DefaultConfigFile))),
		color.HiCyanString(programName+" "+dir))
}

var withCUDA bool

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Write a starter project_config.yaml in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], withCUDA)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Write a starter project_config.yaml in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]), withCUDA)
	},
}

func init() {
	// ybcg init subcommand
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&withCUDA, "cuda", false, "Enable CUDA in the starter config")

	// ybcg new subcommand
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolVar(&withCUDA, "cuda", false, "Enable CUDA in the starter config")
}
