package builder

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
)

const gitignoreContent = "build/\n"

// initGitRepo makes dir a git repository if it is not one already and makes
// sure build/ is ignored. It reports whether a new repository was created.
func initGitRepo(dir string) (bool, error) {
	created := false
	if _, err := git.PlainOpen(dir); errors.Is(err, git.ErrRepositoryNotExists) {
		if _, err := git.PlainInit(dir, false); err != nil {
			return false, err
		}
		created = true
	} else if err != nil {
		return false, err
	}

	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(gitignoreContent), 0o644); err != nil {
			return created, err
		}
	} else if err != nil {
		return created, err
	}

	return created, nil
}
