package gitaccess

import (
	"fmt"
	"strings"
)

// ErrorType classifies a git transport failure.
type ErrorType string

const (
	ErrSSHPermissionDenied   ErrorType = "SSH_PERMISSION_DENIED"
	ErrHTTPSPermissionDenied ErrorType = "HTTPS_PERMISSION_DENIED"
	ErrRepositoryNotFound    ErrorType = "REPOSITORY_NOT_FOUND"
	ErrNetwork               ErrorType = "NETWORK_ERROR"
	ErrAuthenticationFailed  ErrorType = "AUTHENTICATION_FAILED"
	ErrBranchNotFound        ErrorType = "BRANCH_NOT_FOUND"
	ErrTimeout               ErrorType = "TIMEOUT"
	ErrUnknown               ErrorType = "UNKNOWN"
)

// GitError is a classified transport failure. It always carries the raw
// stderr and a provider-specific remediation hint for client guidance.
type GitError struct {
	Type     ErrorType
	Message  string
	Stderr   string
	Solution string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewTimeoutError builds the timeout classification used whenever a git
// process exceeds its deadline. Timeouts are never silently retried.
func NewTimeoutError(operation string) *GitError {
	return &GitError{
		Type:     ErrTimeout,
		Message:  fmt.Sprintf("git %s timed out", operation),
		Solution: "Repository may be large or network is slow, please try again later",
	}
}

// ClassifyError analyzes git stderr and returns a typed error with a
// provider-specific remediation string. The URL is only used to pick the
// provider wording, never re-parsed for transport.
func ClassifyError(stderr, repoURL string) *GitError {
	lower := strings.ToLower(stderr)

	if containsAny(lower,
		"permission denied", "access denied",
		"could not read from remote repository",
		"please make sure you have the correct access rights") {
		if strings.Contains(lower, "publickey") || strings.Contains(lower, "ssh") {
			return &GitError{
				Type:     ErrSSHPermissionDenied,
				Message:  "SSH access denied, unable to access private repository",
				Stderr:   stderr,
				Solution: sshSolution(repoURL),
			}
		}
		return &GitError{
			Type:     ErrHTTPSPermissionDenied,
			Message:  "HTTPS access denied, authentication may be required",
			Stderr:   stderr,
			Solution: httpsSolution(repoURL),
		}
	}

	if containsAny(lower, "repository not found", "not found", "does not exist", "fatal: remote error") {
		// "does not exist" also appears in branch errors; branch wording wins
		if containsAny(lower, "remote branch", "couldn't find remote ref") {
			return branchNotFound(stderr)
		}
		return &GitError{
			Type:    ErrRepositoryNotFound,
			Message: "Repository does not exist or is not accessible",
			Stderr:  stderr,
			Solution: "Repository not found. Please verify:\n" +
				"1. Repository URL is correct (check spelling and case)\n" +
				"2. Repository exists and is not deleted\n" +
				"3. You have access permissions to the repository\n" +
				"4. For private repositories, ensure you have proper authentication configured",
		}
	}

	if containsAny(lower,
		"failed to connect", "connection timed out", "network is unreachable",
		"temporary failure in name resolution", "could not resolve host") {
		return &GitError{
			Type:    ErrNetwork,
			Message: "Network connection failed",
			Stderr:  stderr,
			Solution: "Network connection failed. Please:\n" +
				"1. Check your internet connection\n" +
				"2. Verify the Git provider is accessible\n" +
				"3. Check if you're behind a firewall or proxy\n" +
				"4. Try again in a few minutes in case of temporary network issues",
		}
	}

	if containsAny(lower, "authentication failed", "invalid username or password", "bad credentials", "unauthorized") {
		return &GitError{
			Type:     ErrAuthenticationFailed,
			Message:  "Authentication failed",
			Stderr:   stderr,
			Solution: "Please check your username and password, or use a valid personal access token",
		}
	}

	if containsAny(lower, "remote branch", "couldn't find remote ref") {
		return branchNotFound(stderr)
	}

	if strings.Contains(lower, "timeout") {
		return &GitError{
			Type:     ErrTimeout,
			Message:  "Operation timed out",
			Stderr:   stderr,
			Solution: "Repository may be large or network is slow, please try again later",
		}
	}

	return &GitError{
		Type:     ErrUnknown,
		Message:  fmt.Sprintf("Git operation failed: %s", strings.TrimSpace(stderr)),
		Stderr:   stderr,
		Solution: "Please check repository URL and network connection, or contact administrator",
	}
}

func branchNotFound(stderr string) *GitError {
	return &GitError{
		Type:     ErrBranchNotFound,
		Message:  "Specified branch does not exist",
		Stderr:   stderr,
		Solution: "Please check if the branch name is correct or select another available branch",
	}
}

func sshSolution(repoURL string) string {
	switch {
	case strings.Contains(repoURL, "github.com"):
		return "SSH access denied for GitHub. Please:\n" +
			"1. Generate SSH keys: ssh-keygen -t ed25519 -C \"your_email@example.com\"\n" +
			"2. Add public key to GitHub: Settings > SSH and GPG keys\n" +
			"3. Or use HTTPS with Personal Access Token instead"
	case strings.Contains(repoURL, "gitlab.com"):
		return "SSH access denied for GitLab. Please:\n" +
			"1. Generate SSH keys: ssh-keygen -t ed25519 -C \"your_email@example.com\"\n" +
			"2. Add public key to GitLab: User Settings > SSH Keys\n" +
			"3. Or use HTTPS with Personal Access Token instead"
	default:
		return "SSH access denied. Please:\n" +
			"1. Generate SSH keys if you don't have them\n" +
			"2. Add your public key to the Git provider\n" +
			"3. Or use HTTPS with authentication instead"
	}
}

func httpsSolution(repoURL string) string {
	switch {
	case strings.Contains(repoURL, "github.com"):
		return "HTTPS access denied for GitHub. Please:\n" +
			"1. Create Personal Access Token: GitHub Settings > Developer settings > Personal access tokens\n" +
			"2. Grant 'repo' scope for private repositories\n" +
			"3. Configure the token via: secuflow credential set"
	case strings.Contains(repoURL, "gitlab.com"):
		return "HTTPS access denied for GitLab. Please:\n" +
			"1. Create Personal Access Token: GitLab User Settings > Access Tokens\n" +
			"2. Grant 'read_repository' scope\n" +
			"3. Configure the token via: secuflow credential set"
	default:
		return "HTTPS access denied. Please:\n" +
			"1. Create a Personal Access Token in your Git provider\n" +
			"2. Grant appropriate repository access permissions\n" +
			"3. Configure the token via: secuflow credential set"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
