package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/secuflow/secuflow-go/internal/gitaccess"
	"github.com/secuflow/secuflow-go/internal/models"
)

var (
	credProvider  string
	credType      string
	credUsername  string
	credExpiresIn time.Duration
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage git credentials (secrets stored in the OS keychain)",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set <owner>",
	Short: "Store a credential; the secret is prompted and never echoed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := args[0]
		provider := models.Provider(credProvider)
		ctype := models.CredentialType(credType)

		switch provider {
		case models.ProviderGitHub, models.ProviderGitLab, models.ProviderBitbucket, models.ProviderGeneric:
		default:
			return fmt.Errorf("invalid provider %q (github, gitlab, bitbucket, generic)", credProvider)
		}
		switch ctype {
		case models.CredentialHTTPSToken, models.CredentialBasicAuth:
		case models.CredentialSSHKey:
			return fmt.Errorf("ssh keys authenticate via the agent; nothing to store")
		default:
			return fmt.Errorf("invalid credential type %q (https_token, basic_auth)", credType)
		}
		if ctype == models.CredentialBasicAuth && credUsername == "" {
			return fmt.Errorf("--username is required for basic_auth credentials")
		}

		secret, err := readSecret("Secret (input hidden): ")
		if err != nil {
			return err
		}
		if secret == "" {
			return fmt.Errorf("empty secret")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var secrets gitaccess.SecretStore
		if err := secrets.Set(owner, provider, ctype, secret); err != nil {
			return fmt.Errorf("failed to store secret in keychain: %w", err)
		}

		cred := &models.Credential{
			Owner:    owner,
			Provider: provider,
			Type:     ctype,
			Username: credUsername,
			IsActive: true,
		}
		if credExpiresIn > 0 {
			expires := time.Now().UTC().Add(credExpiresIn)
			cred.ExpiresAt = &expires
		}
		if err := store.SaveCredential(cmd.Context(), cred); err != nil {
			// Keep keychain and metadata consistent.
			secrets.Delete(owner, provider, ctype)
			return fmt.Errorf("failed to save credential metadata: %w", err)
		}

		fmt.Printf("✓ stored %s/%s credential for %s\n", provider, ctype, owner)
		return nil
	},
}

var credentialRmCmd = &cobra.Command{
	Use:   "rm <owner>",
	Short: "Remove a credential and its keychain secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := args[0]
		provider := models.Provider(credProvider)
		ctype := models.CredentialType(credType)

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		cred, err := store.ActiveCredential(cmd.Context(), owner, provider)
		if err != nil {
			return err
		}
		if cred == nil {
			return fmt.Errorf("no %s credential stored for %s", provider, owner)
		}

		var secrets gitaccess.SecretStore
		if err := secrets.Delete(owner, provider, ctype); err != nil {
			logger.WithError(err).Warn("keychain secret was already gone")
		}
		if err := store.DeleteCredential(cmd.Context(), cred.ID); err != nil {
			return err
		}
		fmt.Printf("✓ removed %s credential for %s\n", provider, owner)
		return nil
	},
}

var credentialListCmd = &cobra.Command{
	Use:   "list <owner>",
	Short: "List stored credential metadata (never secrets)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		creds, err := store.ListCredentials(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(creds) == 0 {
			fmt.Println("no credentials stored")
			return nil
		}
		for _, c := range creds {
			lastUsed := "never"
			if c.LastUsedAt != nil {
				lastUsed = c.LastUsedAt.Format(time.RFC3339)
			}
			status := "active"
			if !c.IsActive {
				status = "inactive"
			}
			if c.Expired(time.Now()) {
				status = "expired"
			}
			fmt.Printf("%-10s %-12s %-9s uses=%-4d last_used=%s\n",
				c.Provider, c.Type, status, c.UseCount, lastUsed)
			if c.LastError != "" {
				fmt.Printf("  last error: %s\n", c.LastError)
			}
		}
		return nil
	},
}

// readSecret prompts on the terminal with echo disabled. Non-terminal
// stdin (pipes, CI) falls back to reading a line.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	for _, c := range []*cobra.Command{credentialSetCmd, credentialRmCmd} {
		c.Flags().StringVar(&credProvider, "provider", string(models.ProviderGitHub),
			"git provider: github, gitlab, bitbucket, generic")
		c.Flags().StringVar(&credType, "type", string(models.CredentialHTTPSToken),
			"credential type: https_token or basic_auth")
	}
	credentialSetCmd.Flags().StringVar(&credUsername, "username", "", "username for basic_auth")
	credentialSetCmd.Flags().DurationVar(&credExpiresIn, "expires-in", 0, "optional expiry, e.g. 720h")

	credentialCmd.AddCommand(credentialSetCmd)
	credentialCmd.AddCommand(credentialRmCmd)
	credentialCmd.AddCommand(credentialListCmd)
}
