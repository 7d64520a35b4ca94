package gen

import "strings"

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}

// command renders a single CMake command invocation, e.g. `find_package(Boost REQUIRED)`
func command(name string, args ...string) string {
	var sb strings.Builder
	write(&sb, name, "(", strings.Join(args, " "), ")")
	return sb.String()
}
