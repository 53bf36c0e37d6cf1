package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDetachedHead is returned when HEAD does not point at a branch.
var ErrDetachedHead = errors.New("HEAD is detached")

const refPrefix = "ref: refs/heads/"

// CurrentBranch returns the branch checked out in the repository containing dir.
// It walks up from dir to the nearest .git entry and reads HEAD; worktrees,
// whose .git is a file pointing elsewhere, are followed.
func CurrentBranch(dir string) (string, error) {
	gitDir, err := findGitDir(dir)
	if err != nil {
		return "", err
	}
	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("could not read HEAD: %w", err)
	}
	line := strings.TrimSpace(string(head))
	if !strings.HasPrefix(line, refPrefix) {
		return "", ErrDetachedHead
	}
	return strings.TrimPrefix(line, refPrefix), nil
}

func findGitDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(abs, ".git")
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return candidate, nil
			}
			return readGitFile(candidate)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no git repository found from %s", dir)
		}
		abs = parent
	}
}

// readGitFile resolves a "gitdir: <path>" file.
func readGitFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w", path, err)
	}
	line := strings.TrimSpace(string(b))
	target, ok := strings.CutPrefix(line, "gitdir: ")
	if !ok {
		return "", fmt.Errorf("unexpected content in %s", path)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, nil
}
