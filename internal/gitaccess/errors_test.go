package gitaccess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		url    string
		want   ErrorType
	}{
		{
			name:   "ssh publickey denied",
			stderr: "git@github.com: Permission denied (publickey).\nfatal: Could not read from remote repository.",
			url:    "git@github.com:acme/private.git",
			want:   ErrSSHPermissionDenied,
		},
		{
			name:   "https access denied",
			stderr: "remote: Permission denied\nfatal: unable to access 'https://github.com/acme/private.git/'",
			url:    "https://github.com/acme/private.git",
			want:   ErrHTTPSPermissionDenied,
		},
		{
			name:   "repository not found",
			stderr: "remote: Repository not found.\nfatal: repository 'https://github.com/acme/gone.git/' not found",
			url:    "https://github.com/acme/gone.git",
			want:   ErrRepositoryNotFound,
		},
		{
			name:   "network unreachable",
			stderr: "fatal: unable to access 'https://github.com/acme/repo.git/': Could not resolve host: github.com",
			url:    "https://github.com/acme/repo.git",
			want:   ErrNetwork,
		},
		{
			name:   "authentication failed",
			stderr: "fatal: Authentication failed for 'https://gitlab.com/acme/repo.git/'",
			url:    "https://gitlab.com/acme/repo.git",
			want:   ErrAuthenticationFailed,
		},
		{
			name:   "bad credentials",
			stderr: "remote: Invalid username or password.",
			url:    "https://github.com/acme/repo.git",
			want:   ErrAuthenticationFailed,
		},
		{
			name:   "remote branch missing",
			stderr: "fatal: couldn't find remote ref refs/heads/no-such-branch",
			url:    "https://github.com/acme/repo.git",
			want:   ErrBranchNotFound,
		},
		{
			name:   "remote branch does not exist",
			stderr: "error: remote branch feature/x does not exist",
			url:    "https://github.com/acme/repo.git",
			want:   ErrBranchNotFound,
		},
		{
			name:   "timeout wording",
			stderr: "fatal: the remote end hung up unexpectedly: operation timeout",
			url:    "https://github.com/acme/repo.git",
			want:   ErrTimeout,
		},
		{
			name:   "unknown",
			stderr: "fatal: something else entirely went wrong",
			url:    "https://github.com/acme/repo.git",
			want:   ErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.stderr, tt.url)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.stderr, got.Stderr)
			assert.NotEmpty(t, got.Solution)
		})
	}
}

func TestClassifyErrorProviderRemediation(t *testing.T) {
	github := ClassifyError("Permission denied (publickey).", "git@github.com:acme/repo.git")
	assert.Contains(t, github.Solution, "GitHub")

	gitlab := ClassifyError("Permission denied (publickey).", "git@gitlab.com:acme/repo.git")
	assert.Contains(t, gitlab.Solution, "GitLab")

	generic := ClassifyError("Permission denied (publickey).", "git@git.internal.corp:acme/repo.git")
	assert.NotContains(t, generic.Solution, "GitHub")
	assert.NotContains(t, generic.Solution, "GitLab")
}

func TestNewTimeoutError(t *testing.T) {
	err := NewTimeoutError("clone")
	assert.Equal(t, ErrTimeout, err.Type)
	assert.Contains(t, err.Message, "clone")
}
