// Package gitops shells out to git for the few repository operations
// sintesi needs after rewriting documentation.
package gitops

import (
	"os/exec"
	"strings"

	"sintesi/internal/errors"
	"sintesi/internal/logging"
)

// Git wraps git invocations rooted at the repository.
type Git struct {
	repoRoot string
	logger   *logging.Logger
}

// New creates a Git helper for the given repository root.
func New(repoRoot string, logger *logging.Logger) *Git {
	return &Git{repoRoot: repoRoot, logger: logger}
}

// IsRepo reports whether repoRoot is inside a git work tree.
func (g *Git) IsRepo() bool {
	out, err := g.run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Stage adds the given paths (relative to the repo root) to the index.
// Doc rewrites and the registry file are staged together so a commit
// captures both sides of the sync.
func (g *Git) Stage(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := g.run(args...); err != nil {
		return errors.New(errors.WriteError, "git add failed", err)
	}
	g.logger.Debug("staged files", map[string]interface{}{
		"count": len(paths),
	})
	return nil
}

// HeadCommit returns the current HEAD commit hash.
func (g *Git) HeadCommit() (string, error) {
	out, err := g.run("rev-parse", "HEAD")
	if err != nil {
		return "", errors.New(errors.InternalError, "git rev-parse failed", err)
	}
	return out, nil
}

// DirtyPaths lists modified or untracked paths, one per line.
func (g *Git) DirtyPaths() ([]string, error) {
	out, err := g.run("status", "--porcelain")
	if err != nil {
		return nil, errors.New(errors.InternalError, "git status failed", err)
	}
	if out == "" {
		return nil, nil
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 3 {
			paths = append(paths, strings.TrimSpace(line[3:]))
		}
	}
	return paths, nil
}

func (g *Git) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
