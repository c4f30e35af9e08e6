package gitaccess

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/config"
	"github.com/secuflow/secuflow-go/internal/models"
)

// Client is the git transport layer: remote validation, cloning, branch
// operations. All subprocess calls carry hard deadlines from config and
// never prompt for credentials.
type Client struct {
	cfg      config.GitConfig
	resolver *Resolver
	log      *logrus.Logger
}

func NewClient(cfg config.GitConfig, resolver *Resolver, log *logrus.Logger) *Client {
	return &Client{cfg: cfg, resolver: resolver, log: log}
}

// AccessReport is the outcome of validating a remote: everything the ref
// listing reveals without a clone.
type AccessReport struct {
	Accessible    bool
	Branches      []models.Branch
	DefaultBranch string
	UsedAuth      bool
}

// ValidateAccess confirms the remote repository is reachable with the
// resolved credential (or anonymously) and reports its branches and default
// branch straight from the ref listing. Failures come back classified,
// never raw.
func (c *Client) ValidateAccess(ctx context.Context, owner, repoURL string) (*AccessReport, error) {
	if err := ValidateRepoURL(repoURL); err != nil {
		return nil, err
	}

	cred, err := c.resolver.Resolve(ctx, owner, repoURL)
	if err != nil {
		return nil, err
	}
	target := AuthenticatedURL(repoURL, cred)

	c.log.WithField("repo", Redact(target)).Debug("validating remote access")
	out, opErr := runGitClassified(ctx, "", c.cfg.RemoteTimeout, repoURL, "ls-remote", "--heads", target)
	c.resolver.RecordUse(ctx, cred, opErr)
	if opErr != nil {
		return nil, opErr
	}

	branches := parseRemoteHeads(out)
	return &AccessReport{
		Accessible:    true,
		Branches:      branches,
		DefaultBranch: pickDefaultBranch(branches),
		UsedAuth:      cred != nil && target != repoURL,
	}, nil
}

// parseRemoteHeads turns ls-remote --heads output (<hash>\trefs/heads/<name>
// per line) into branch records sorted by name.
func parseRemoteHeads(out string) []models.Branch {
	var branches []models.Branch
	for _, line := range splitLines(out) {
		fields := strings.Fields(line)
		if len(fields) != 2 || !strings.HasPrefix(fields[1], "refs/heads/") {
			continue
		}
		hash := fields[0]
		name := strings.TrimPrefix(fields[1], "refs/heads/")
		if name == "" {
			continue
		}
		branches = append(branches, models.Branch{
			Name:       name,
			CommitHash: hash,
			BranchID:   BranchID(name, hash),
		})
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches
}

// pickDefaultBranch prefers main, then master, then the first branch.
func pickDefaultBranch(branches []models.Branch) string {
	for _, preferred := range []string{"main", "master"} {
		for _, b := range branches {
			if b.Name == preferred {
				return b.Name
			}
		}
	}
	if len(branches) > 0 {
		return branches[0].Name
	}
	return ""
}

// Clone clones the remote repository into dest. The credential is embedded
// in the clone URL only for the lifetime of the subprocess.
func (c *Client) Clone(ctx context.Context, owner, repoURL, dest string) error {
	if err := ValidateRepoURL(repoURL); err != nil {
		return err
	}

	cred, err := c.resolver.Resolve(ctx, owner, repoURL)
	if err != nil {
		return err
	}
	target := AuthenticatedURL(repoURL, cred)

	c.log.WithFields(logrus.Fields{
		"repo": Redact(target),
		"dest": dest,
	}).Info("cloning repository")
	_, opErr := runGitClassified(ctx, "", c.cfg.CloneTimeout, repoURL, "clone", target, dest)
	c.resolver.RecordUse(ctx, cred, opErr)
	if opErr != nil {
		return opErr
	}

	// Scrub the embedded credential so it never persists in .git/config.
	if cred != nil && target != repoURL {
		if _, err := runGit(ctx, dest, c.cfg.LocalTimeout, "remote", "set-url", "origin", repoURL); err != nil {
			c.log.WithError(err).Warn("failed to reset origin URL after authenticated clone")
		}
	}
	return nil
}

// FetchAll updates all remote tracking refs in a local clone.
func (c *Client) FetchAll(ctx context.Context, repoPath string) error {
	_, err := runGit(ctx, repoPath, c.cfg.RemoteTimeout, "fetch", "--all", "--prune")
	if err != nil {
		return fmt.Errorf("failed to fetch remotes: %w", err)
	}
	return nil
}

// DefaultBranch picks the branch analyses run against when none is given,
// from a local clone's branch listing.
func (c *Client) DefaultBranch(ctx context.Context, repoPath string) (string, error) {
	branches, err := c.ListBranches(ctx, repoPath)
	if err != nil {
		return "", err
	}
	if len(branches) == 0 {
		return "", fmt.Errorf("repository has no branches")
	}
	return pickDefaultBranch(branches), nil
}

// CurrentBranch returns the checked-out branch name of a local clone.
func (c *Client) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	out, err := runGit(ctx, repoPath, c.cfg.LocalTimeout, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to read current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Checkout fetches all remotes and checks out the named branch. A missing
// branch surfaces as BRANCH_NOT_FOUND.
func (c *Client) Checkout(ctx context.Context, repoPath, branch string) error {
	if err := c.FetchAll(ctx, repoPath); err != nil {
		return err
	}
	_, err := runGit(ctx, repoPath, c.cfg.RemoteTimeout, "checkout", branch)
	return err
}
