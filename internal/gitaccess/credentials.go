package gitaccess

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"

	"github.com/secuflow/secuflow-go/internal/models"
)

const keyringService = "secuflow"

var repoURLPattern = regexp.MustCompile(`^(https?://[^\s]+|git@[^\s:]+:[^\s]+|ssh://[^\s]+)$`)

// ValidateRepoURL checks the repository URL shape before any transport call.
func ValidateRepoURL(repoURL string) error {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return fmt.Errorf("repository URL is empty")
	}
	if !repoURLPattern.MatchString(repoURL) {
		return fmt.Errorf("invalid repository URL format: %s", repoURL)
	}
	return nil
}

// InferProvider maps the repository host to a provider. Unrecognized hosts
// are generic; credentials never cross providers.
func InferProvider(repoURL string) models.Provider {
	host := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Host != "" {
		host = u.Host
	} else if strings.HasPrefix(repoURL, "git@") {
		// git@host:path
		if idx := strings.Index(repoURL, ":"); idx > 4 {
			host = repoURL[4:idx]
		}
	}
	host = strings.ToLower(host)
	switch {
	case strings.Contains(host, "github"):
		return models.ProviderGitHub
	case strings.Contains(host, "gitlab"):
		return models.ProviderGitLab
	case strings.Contains(host, "bitbucket"):
		return models.ProviderBitbucket
	default:
		return models.ProviderGeneric
	}
}

// CredentialStore is the metadata persistence surface the resolver needs.
// Implemented by storage.Store.
type CredentialStore interface {
	ActiveCredential(ctx context.Context, owner string, provider models.Provider) (*models.Credential, error)
	RecordCredentialUse(ctx context.Context, id string, usedAt time.Time, lastError string) error
}

// SecretStore keeps credential secrets in the OS keychain. Plaintext secrets
// never touch the database.
type SecretStore struct{}

func secretKey(owner string, provider models.Provider, credType models.CredentialType) string {
	return fmt.Sprintf("%s/%s/%s", owner, provider, credType)
}

func (SecretStore) Set(owner string, provider models.Provider, credType models.CredentialType, secret string) error {
	return keyring.Set(keyringService, secretKey(owner, provider, credType), secret)
}

func (SecretStore) Get(owner string, provider models.Provider, credType models.CredentialType) (string, error) {
	return keyring.Get(keyringService, secretKey(owner, provider, credType))
}

func (SecretStore) Delete(owner string, provider models.Provider, credType models.CredentialType) error {
	return keyring.Delete(keyringService, secretKey(owner, provider, credType))
}

// ResolvedCredential pairs the metadata row with its secret for the duration
// of one transport operation.
type ResolvedCredential struct {
	ID       string
	Provider models.Provider
	Type     models.CredentialType
	Username string
	Secret   string
}

// Resolver resolves the credential to use for a repository URL:
// environment variable first, then the owner's active keychain credential
// for the inferred provider. No credential at all is a valid outcome
// (public repositories).
type Resolver struct {
	store   CredentialStore
	secrets SecretStore
	log     *logrus.Logger
}

func NewResolver(store CredentialStore, log *logrus.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

var providerEnvVars = map[models.Provider]string{
	models.ProviderGitHub:    "GITHUB_TOKEN",
	models.ProviderGitLab:    "GITLAB_TOKEN",
	models.ProviderBitbucket: "BITBUCKET_TOKEN",
	models.ProviderGeneric:   "GIT_TOKEN",
}

// Resolve returns the credential for repoURL, or nil when none is configured.
func (r *Resolver) Resolve(ctx context.Context, owner, repoURL string) (*ResolvedCredential, error) {
	provider := InferProvider(repoURL)

	if envVar, ok := providerEnvVars[provider]; ok {
		if token := os.Getenv(envVar); token != "" {
			r.log.WithFields(logrus.Fields{
				"provider": provider,
				"source":   "env",
			}).Debug("resolved credential from environment")
			return &ResolvedCredential{
				Provider: provider,
				Type:     models.CredentialHTTPSToken,
				Secret:   token,
			}, nil
		}
	}

	if r.store == nil {
		return nil, nil
	}

	cred, err := r.store.ActiveCredential(ctx, owner, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	if cred == nil {
		return nil, nil
	}
	if cred.Expired(time.Now()) {
		r.log.WithField("credential_id", cred.ID).Warn("active credential is expired, ignoring")
		return nil, nil
	}

	secret, err := r.secrets.Get(owner, provider, cred.Type)
	if err != nil {
		r.log.WithError(err).WithField("credential_id", cred.ID).
			Warn("credential metadata exists but secret is missing from keychain")
		return nil, nil
	}

	r.log.WithFields(logrus.Fields{
		"provider": provider,
		"source":   "keyring",
	}).Debug("resolved credential from keychain")
	return &ResolvedCredential{
		ID:       cred.ID,
		Provider: provider,
		Type:     cred.Type,
		Username: cred.Username,
		Secret:   secret,
	}, nil
}

// RecordUse updates usage metadata after a transport operation. Best effort.
func (r *Resolver) RecordUse(ctx context.Context, cred *ResolvedCredential, opErr error) {
	if r.store == nil || cred == nil || cred.ID == "" {
		return
	}
	lastError := ""
	if opErr != nil {
		lastError = opErr.Error()
	}
	if err := r.store.RecordCredentialUse(ctx, cred.ID, time.Now(), lastError); err != nil {
		r.log.WithError(err).Warn("failed to record credential usage")
	}
}

// AuthenticatedURL embeds the credential into an HTTPS repository URL using
// the provider's convention. Any failure falls back to the bare URL so the
// caller can still attempt anonymous access.
func AuthenticatedURL(repoURL string, cred *ResolvedCredential) string {
	if cred == nil || cred.Secret == "" {
		return repoURL
	}
	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		// SSH URLs authenticate via the agent, not the URL.
		return repoURL
	}

	u, err := url.Parse(repoURL)
	if err != nil || u.Host == "" {
		return repoURL
	}

	switch cred.Type {
	case models.CredentialBasicAuth:
		if cred.Username == "" {
			return repoURL
		}
		u.User = url.UserPassword(cred.Username, cred.Secret)
	case models.CredentialHTTPSToken:
		switch cred.Provider {
		case models.ProviderGitHub:
			u.User = url.User(cred.Secret)
		case models.ProviderGitLab:
			u.User = url.UserPassword("oauth2", cred.Secret)
		default:
			u.User = url.User(cred.Secret)
		}
	default:
		return repoURL
	}
	return u.String()
}

// Redact masks any userinfo embedded in a URL for log output.
func Redact(repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil || u.User == nil {
		return repoURL
	}
	u.User = url.User("***")
	return u.String()
}
