package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/storage"
	"github.com/dshills/llmflow/pkg/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxCredentialSize = 1 << 20 // 1MB limit for all credential inputs

// isOnlyWhitespace checks if a byte slice contains only Unicode whitespace
// characters without allocating strings. Returns true if empty or
// whitespace-only.
func isOnlyWhitespace(data []byte) bool {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 is treated as non-whitespace
			return false
		}
		if !unicode.IsSpace(r) {
			return false
		}
		i += size
	}
	return true
}

// NewModelsCommand creates the model registry command
func NewModelsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the models offered in the editor",
		Long: `Manage the model registry: the ordered list of provider/model pairs the
property panel offers for language-model nodes.

API keys are stored in your system's native credential store (Keychain on
macOS, Credential Manager on Windows, Secret Service on Linux). The registry
only records the name of the keyring entry.`,
	}

	cmd.AddCommand(newModelsListCommand(opts))
	cmd.AddCommand(newModelsAddCommand(opts))
	cmd.AddCommand(newModelsRemoveCommand(opts))

	return cmd
}

func newModelsListCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openProviderStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			registered, err := store.ListProviders(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(registered) == 0 && len(opts.Config.Providers) == 0 {
				_, _ = fmt.Fprintln(out, "No models registered.")
				_, _ = fmt.Fprintln(out, "\nAdd one with: llmflow models add <provider> <model>")
				return nil
			}

			vault := opts.credentials()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PROVIDER\tMODEL\tCREDENTIAL\tSOURCE")
			for _, p := range registered {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\tregistry\n", p.ProviderName, p.Model, credentialStatus(vault, p.CredentialRef))
			}
			for _, p := range opts.Config.Providers {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\tconfig\n", p.ProviderName, p.Model, credentialStatus(vault, p.CredentialRef))
			}
			return w.Flush()
		},
	}
}

// credentialStatus shows whether a reference resolves, never the value
func credentialStatus(vault storage.CredentialVault, ref string) string {
	switch {
	case ref == "":
		return "-"
	case storage.HasCredential(vault, ref):
		return ref + " (set)"
	default:
		return ref + " (missing)"
	}
}

func newModelsAddCommand(opts *Options) *cobra.Command {
	var (
		credentialRef string
		useStdin      bool
		prompt        bool
	)

	cmd := &cobra.Command{
		Use:   "add <provider> <model>",
		Short: "Register a model",
		Long: `Register a provider/model pair. New models are appended to the end of
the list shown in the editor.

An API key can be stored in the system keyring at the same time. The
keyring entry is named by --credential-ref, which defaults to the provider
name.

Examples:
  # Register a model whose key is already in the keyring
  llmflow models add openai gpt-4 --credential-ref openai

  # Register a model and store its key from stdin (automation)
  printf '%s' "$ANTHROPIC_API_KEY" | llmflow models add anthropic claude-3-opus --stdin

  # Register a model and type its key at a hidden prompt
  llmflow models add openai gpt-4o --prompt

Note:
  - Keys have a 1MB maximum size
  - --stdin reads until EOF; only trailing CR/LF characters are removed
  - Whitespace-only keys are rejected`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := models.Provider{ProviderName: args[0], Model: args[1], CredentialRef: credentialRef}
			if err := p.Validate(); err != nil {
				return err
			}

			if (useStdin || prompt) && p.CredentialRef == "" {
				p.CredentialRef = p.ProviderName
			}
			if p.CredentialRef != "" && !validation.IsValidIdentifier(p.CredentialRef) {
				return fmt.Errorf("invalid credential reference: %q\n\nUse letters, digits, '-', '_' or '.'", p.CredentialRef)
			}

			var key []byte
			var err error
			switch {
			case useStdin:
				key, err = readCredentialStdin(cmd.InOrStdin())
			case prompt:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enter API key for '%s': ", p.CredentialRef)
				key, err = readCredentialPrompt()
				_, _ = fmt.Fprintln(cmd.OutOrStdout()) // New line after hidden input
			}
			// Zero key bytes on all exit paths
			defer func() {
				for i := range key {
					key[i] = 0
				}
			}()
			if err != nil {
				return err
			}

			store, err := opts.openProviderStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Add(cmd.Context(), p); err != nil {
				if errors.Is(err, storage.ErrProviderExists) {
					return fmt.Errorf("model already registered: %s", p.ID())
				}
				return fmt.Errorf("failed to register model: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Registered %s\n", p.ID())

			if key != nil {
				if err := opts.credentials().Store(p.CredentialRef, string(key)); err != nil {
					return fmt.Errorf("model registered but the API key was not stored: %w", err)
				}
				_, _ = fmt.Fprintf(out, "✓ API key stored in keyring as '%s'\n", p.CredentialRef)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialRef, "credential-ref", "", "Keyring entry holding the API key")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read the API key from stdin")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Prompt for the API key without echo")
	cmd.MarkFlagsMutuallyExclusive("stdin", "prompt")

	return cmd
}

// readCredentialStdin reads a key until EOF, trimming only trailing
// newlines
func readCredentialStdin(r io.Reader) ([]byte, error) {
	// Limit stdin reading to prevent memory exhaustion
	input, err := io.ReadAll(io.LimitReader(r, maxCredentialSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}
	if len(input) > maxCredentialSize {
		return nil, fmt.Errorf("API key exceeds maximum size of %d bytes", maxCredentialSize)
	}
	return checkCredential(bytes.TrimRight(input, "\r\n"))
}

func readCredentialPrompt() ([]byte, error) {
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read API key: %w", err)
	}
	if len(key) > maxCredentialSize {
		return nil, fmt.Errorf("API key exceeds maximum size of %d bytes", maxCredentialSize)
	}
	return checkCredential(key)
}

func checkCredential(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("API key cannot be empty")
	}
	if isOnlyWhitespace(key) {
		return nil, errors.New("API key cannot contain only whitespace characters")
	}
	return key, nil
}

func newModelsRemoveCommand(opts *Options) *cobra.Command {
	var deleteCredential bool

	cmd := &cobra.Command{
		Use:   "remove <provider> <model>",
		Short: "Remove a registered model",
		Long: `Remove a provider/model pair from the registry.

Workflows that use the model keep it; the editor shows a warning for nodes
whose model is no longer registered.

Examples:
  llmflow models remove openai gpt-4
  llmflow models remove openai gpt-4 --delete-credential`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openProviderStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := store.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				if errors.Is(err, models.ErrProviderNotFound) {
					return fmt.Errorf("model not registered: %s/%s", args[0], args[1])
				}
				return err
			}
			if err := store.Remove(cmd.Context(), p.ProviderName, p.Model); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Removed %s\n", p.ID())

			if deleteCredential && p.CredentialRef != "" {
				err := opts.credentials().Forget(p.CredentialRef)
				switch {
				case errors.Is(err, storage.ErrCredentialNotFound):
					_, _ = fmt.Fprintf(out, "  No keyring entry '%s' to delete\n", p.CredentialRef)
				case err != nil:
					return fmt.Errorf("failed to delete API key: %w", err)
				default:
					_, _ = fmt.Fprintf(out, "✓ Deleted keyring entry '%s'\n", p.CredentialRef)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteCredential, "delete-credential", false, "Also delete the model's API key from the keyring")

	return cmd
}
