package gitaccess

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/secuflow/secuflow-go/internal/models"
)

// BranchID derives a stable branch identifier from name and commit hash.
// The same branch at the same commit always yields the same ID.
func BranchID(name, commitHash string) string {
	sum := md5.Sum([]byte(name + ":" + commitHash))
	return hex.EncodeToString(sum[:])
}

// ListBranches enumerates local and remote branches of a local clone,
// deduplicated by short name, with commit hashes resolved in one batched
// for-each-ref call where possible.
func (c *Client) ListBranches(ctx context.Context, repoPath string) ([]models.Branch, error) {
	out, err := runGit(ctx, repoPath, c.cfg.LocalTimeout, "branch", "-a")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	current := ""
	seen := make(map[string]bool)
	var names []string
	for _, line := range splitLines(out) {
		isCurrent := strings.HasPrefix(line, "* ")
		name := strings.TrimPrefix(line, "* ")
		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, "->") {
			// skip symbolic refs like remotes/origin/HEAD -> origin/main
			continue
		}
		if strings.HasPrefix(name, "remotes/") {
			name = strings.TrimPrefix(name, "remotes/")
			if idx := strings.Index(name, "/"); idx >= 0 {
				name = name[idx+1:]
			}
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if isCurrent {
			current = name
		}
	}
	sort.Strings(names)

	hashes := c.branchHashes(ctx, repoPath, names)

	branches := make([]models.Branch, 0, len(names))
	for _, name := range names {
		hash := hashes[name]
		branches = append(branches, models.Branch{
			Name:       name,
			IsCurrent:  name == current,
			CommitHash: hash,
			BranchID:   BranchID(name, hash),
		})
	}
	return branches, nil
}

// branchHashes resolves commit hashes for local heads in one for-each-ref
// call, then fills gaps (remote-only branches) with per-branch rev-parse.
func (c *Client) branchHashes(ctx context.Context, repoPath string, names []string) map[string]string {
	hashes := make(map[string]string, len(names))

	out, err := runGit(ctx, repoPath, c.cfg.LocalTimeout,
		"for-each-ref", "--format=%(refname:short) %(objectname)", "refs/heads/")
	if err == nil {
		for _, line := range splitLines(out) {
			fields := strings.Fields(line)
			if len(fields) == 2 {
				hashes[fields[0]] = fields[1]
			}
		}
	} else {
		c.log.WithError(err).Debug("batched ref listing failed, falling back to rev-parse")
	}

	for _, name := range names {
		if hashes[name] != "" {
			continue
		}
		for _, ref := range []string{name, "origin/" + name} {
			out, err := runGit(ctx, repoPath, c.cfg.LocalTimeout, "rev-parse", ref)
			if err == nil {
				hashes[name] = strings.TrimSpace(out)
				break
			}
		}
	}
	return hashes
}
