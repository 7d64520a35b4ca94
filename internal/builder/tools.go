package builder

import (
	"os/exec"
)

var commonCMakeNames = []string{"cmake", "cmake3"}

// findCMake locates cmake, preferring $CMAKE from env. It returns "" if none is found.
func findCMake(env ConfigEnv) string {
	if cmake := env.Environ["CMAKE"]; cmake != "" {
		return cmake
	}

	for _, name := range commonCMakeNames {
		path, err := exec.LookPath(name)
		if err == nil {
			return path
		}
	}

	return ""
}
