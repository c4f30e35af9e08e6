package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/config"
)

const prunedBranch = "safe-mode-pruned"

// Workspace is a sanitized, disposable working copy handed to the mining
// tool. The original clone is never modified.
type Workspace struct {
	Path   string
	Branch string

	log *logrus.Logger
}

// Cleanup removes the workspace directory. Safe to call on every code path,
// including partially prepared workspaces.
func (w *Workspace) Cleanup() {
	if w == nil || w.Path == "" {
		return
	}
	if err := os.RemoveAll(w.Path); err != nil && w.log != nil {
		w.log.WithError(err).WithField("path", w.Path).Warn("failed to remove workspace")
	}
}

// Preparer builds sanitized workspaces: a shared no-checkout clone of the
// local repository, pruned down to the analyzable source files, committed on
// a dedicated branch so the mining tool sees a consistent tree.
type Preparer struct {
	cfg config.WorkspaceConfig
	git config.GitConfig
	log *logrus.Logger
}

func NewPreparer(cfg config.WorkspaceConfig, git config.GitConfig, log *logrus.Logger) *Preparer {
	return &Preparer{cfg: cfg, git: git, log: log}
}

// Prepare clones repoPath into a fresh workspace, checks out branch, prunes
// everything outside the extension allow-list plus excluded directories,
// symlinks, and submodule gitlinks, then commits the filtered tree on the
// pruned branch. On any failure the partial workspace is removed.
func (p *Preparer) Prepare(ctx context.Context, repoPath, branch string) (*Workspace, error) {
	if err := os.MkdirAll(p.cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace base dir: %w", err)
	}
	workDir := filepath.Join(p.cfg.BaseDir, "ws-"+uuid.NewString())

	ws := &Workspace{Path: workDir, Branch: prunedBranch, log: p.log}
	if err := p.prepare(ctx, ws, repoPath, branch); err != nil {
		ws.Cleanup()
		return nil, err
	}
	return ws, nil
}

func (p *Preparer) prepare(ctx context.Context, ws *Workspace, repoPath, branch string) error {
	log := p.log.WithFields(logrus.Fields{
		"repo":   repoPath,
		"branch": branch,
		"dir":    ws.Path,
	})
	log.Info("preparing sanitized workspace")

	// Shared clone avoids duplicating the object store; no checkout yet so
	// the working tree starts from the requested branch, not HEAD.
	if _, err := run(ctx, "", p.git.LocalTimeout, "clone", "--shared", "--no-checkout", repoPath, ws.Path); err != nil {
		return fmt.Errorf("failed to create shared clone: %w", err)
	}
	if _, err := run(ctx, ws.Path, p.git.LocalTimeout, "checkout", branch); err != nil {
		return err
	}

	pruned, err := p.pruneTree(ws.Path)
	if err != nil {
		return err
	}
	if err := p.removeGitlinks(ctx, ws.Path); err != nil {
		return err
	}
	if _, err := run(ctx, ws.Path, p.git.LocalTimeout, "add", "-A"); err != nil {
		return fmt.Errorf("failed to stage pruned tree: %w", err)
	}
	removeEmptyDirs(ws.Path)

	if _, err := run(ctx, ws.Path, p.git.LocalTimeout, "checkout", "-b", prunedBranch); err != nil {
		return err
	}
	if _, err := run(ctx, ws.Path, p.git.LocalTimeout,
		"-c", "user.name=secuflow", "-c", "user.email=secuflow@localhost",
		"commit", "--allow-empty", "-m", "prune non-source files for analysis"); err != nil {
		return fmt.Errorf("failed to commit pruned tree: %w", err)
	}

	if p.cfg.RewriteHistory {
		if err := p.rewriteHistory(ctx, ws.Path, pruned); err != nil {
			return err
		}
	}

	log.WithField("pruned_paths", len(pruned)).Info("workspace ready")
	return nil
}

// pruneTree removes excluded directories, files outside the extension
// allow-list, and symlinks. Returns the repo-relative paths it removed.
func (p *Preparer) pruneTree(root string) ([]string, error) {
	exclude := make(map[string]bool, len(p.cfg.ExcludeDirs))
	for _, d := range p.cfg.ExcludeDirs {
		exclude[d] = true
	}
	allow := make(map[string]bool, len(p.cfg.AllowExtensions))
	for _, ext := range p.cfg.AllowExtensions {
		allow[strings.ToLower(ext)] = true
	}

	var pruned []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." || rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			return nil
		}

		if info.IsDir() {
			if exclude[info.Name()] {
				pruned = append(pruned, rel)
				if rmErr := os.RemoveAll(path); rmErr != nil {
					return rmErr
				}
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			pruned = append(pruned, rel)
			return os.Remove(path)
		}
		if !allow[strings.ToLower(filepath.Ext(info.Name()))] {
			pruned = append(pruned, rel)
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prune workspace tree: %w", err)
	}
	return pruned, nil
}

// removeGitlinks drops submodule entries (mode 160000) from the index so
// the mining tool never descends into nested repositories.
func (p *Preparer) removeGitlinks(ctx context.Context, dir string) error {
	out, err := run(ctx, dir, p.git.LocalTimeout, "ls-files", "-s")
	if err != nil {
		return fmt.Errorf("failed to list index entries: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "160000 ") {
			continue
		}
		// format: <mode> <object> <stage>\t<path>
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		path := line[tab+1:]
		if _, err := run(ctx, dir, p.git.LocalTimeout, "rm", "--cached", "--ignore-unmatch", path); err != nil {
			return fmt.Errorf("failed to remove gitlink %s: %w", path, err)
		}
		os.RemoveAll(filepath.Join(dir, path))
	}
	return nil
}

// rewriteHistory rewrites every commit to exclude the pruned paths while
// preserving author and committer identities. Feature flagged; slow on
// large repositories.
func (p *Preparer) rewriteHistory(ctx context.Context, dir string, pruned []string) error {
	if len(pruned) == 0 {
		return nil
	}
	quoted := make([]string, len(pruned))
	for i, path := range pruned {
		quoted[i] = "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
	}
	indexFilter := "git rm -r --cached --ignore-unmatch " + strings.Join(quoted, " ")

	p.log.WithField("paths", len(pruned)).Info("rewriting history without pruned paths")
	_, err := run(ctx, dir, p.git.CloneTimeout,
		"-c", "core.quotepath=false",
		"filter-branch", "--force", "--prune-empty",
		"--index-filter", indexFilter,
		"--", prunedBranch)
	if err != nil {
		return fmt.Errorf("history rewrite failed: %w", err)
	}
	return nil
}

// removeEmptyDirs sweeps directories left empty by pruning, deepest first.
func removeEmptyDirs(root string) {
	var dirs []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() && path != root && info.Name() != ".git" {
			rel, _ := filepath.Rel(root, path)
			if !strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
				dirs = append(dirs, path)
			}
		}
		return nil
	})
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		// Remove succeeds only when empty.
		os.Remove(d)
	}
}
