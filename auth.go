package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minios-linux/tabclean/provider"
	"github.com/minios-linux/tabclean/settings"
	"github.com/spf13/cobra"
)

// ---------------------------------------------------------------------------
// auth (API keys in the credential store)
// ---------------------------------------------------------------------------

// keyProviders are the providers that can store credentials, in menu order.
var keyProviders = []struct {
	id      string
	helpURL string
}{
	{provider.ProviderOpenAI, "https://platform.openai.com/api-keys"},
	{provider.ProviderGroq, "https://console.groq.com/keys"},
	{provider.ProviderGoogle, "https://aistudio.google.com/apikey"},
	{provider.ProviderAnthropic, "https://console.anthropic.com/settings/keys"},
	{provider.ProviderCustomOpenAI, ""},
}

func isKeyProvider(id string) bool {
	for _, p := range keyProviders {
		if p.id == id {
			return true
		}
	}
	return false
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys for translation providers.

Keys are stored in ` + settings.FilePath() + ` (mode 0600).
A key passed with --api-key or set in ` + settings.EnvAPIKey + ` takes precedence,
followed by the provider's own variable (e.g. OPENAI_API_KEY).

Examples:
  tabclean auth set --provider groq                 Prompt for a Groq key
  tabclean auth set --provider custom-openai \
      --base-url https://llm.example.com/v1         Store an endpoint
  tabclean auth remove --provider groq              Remove the Groq key
  tabclean auth remove                              Remove all keys
  tabclean auth list                                Show stored keys`,
	}

	cmd.AddCommand(
		newAuthSetCmd(),
		newAuthRemoveCmd(),
		newAuthListCmd(),
	)
	return cmd
}

func newAuthSetCmd() *cobra.Command {
	var providerID, key, baseURL string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isKeyProvider(providerID) {
				return fmt.Errorf("provider %q does not use API keys", providerID)
			}
			if key == "" && (providerID != provider.ProviderCustomOpenAI || baseURL == "") {
				var err error
				if key, err = promptKey(cmd.InOrStdin(), providerID); err != nil {
					return err
				}
			}
			if providerID == provider.ProviderCustomOpenAI && baseURL == "" && settings.GetBaseURL(providerID) == "" {
				return fmt.Errorf("provider %s requires --base-url", providerID)
			}
			if err := saveKey(providerID, key, baseURL); err != nil {
				return err
			}
			logSuccess("%s credentials saved", providerID)
			return nil
		},
	}
	cmd.Flags().StringVar(&providerID, "provider", "", "Provider ID (required)")
	cmd.Flags().StringVar(&key, "key", "", "API key (default: prompt)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint URL (custom-openai)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeKeyProviders)
	return cmd
}

// promptKey reads a key from in, showing where to get one.
func promptKey(in io.Reader, providerID string) (string, error) {
	for _, p := range keyProviders {
		if p.id == providerID && p.helpURL != "" {
			fmt.Fprintf(os.Stderr, "  Get your API key from: %s%s%s\n", colorGreen, p.helpURL, colorReset)
		}
	}
	if existing := settings.GetAPIKey(providerID); existing != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
	}
	fmt.Fprintf(os.Stderr, "  Enter API key: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return "", fmt.Errorf("no input received")
	}
	key := strings.TrimSpace(scanner.Text())
	if key == "" {
		return "", fmt.Errorf("no API key provided")
	}
	return key, nil
}

// saveKey stores key (and baseURL when set), keeping a stored base URL.
func saveKey(providerID, key, baseURL string) error {
	if baseURL == "" {
		baseURL = settings.GetBaseURL(providerID)
	}
	if key == "" {
		key = settings.GetAPIKey(providerID)
	}
	if baseURL != "" {
		return settings.SetAPIKeyWithBaseURL(providerID, key, baseURL)
	}
	return settings.SetAPIKey(providerID, key)
}

func newAuthRemoveCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"logout"},
		Short:   "Remove stored credentials",
		Long: `Remove stored credentials for one provider, or for all providers when
--provider is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				if err := settings.RemoveAll(); err != nil {
					return fmt.Errorf("removing credentials: %w", err)
				}
				logSuccess("All stored credentials removed")
				return nil
			}
			if !isKeyProvider(providerID) {
				return fmt.Errorf("unknown provider %q; run 'tabclean auth list' to see providers", providerID)
			}
			if err := settings.Remove(providerID); err != nil {
				return fmt.Errorf("removing %s credentials: %w", providerID, err)
			}
			logSuccess("%s credentials removed", providerID)
			return nil
		},
	}
	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to remove (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeKeyProviders)
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%sStored Credentials%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			for _, line := range credentialLines() {
				fmt.Fprintln(os.Stderr, line)
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

// credentialLines describes each key provider and the environment.
func credentialLines() []string {
	var lines []string
	for _, p := range keyProviders {
		entry := settings.Get(p.id)
		var status string
		switch {
		case entry != nil && entry.Key != "":
			status = fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
		case entry != nil && entry.BaseURL != "":
			status = fmt.Sprintf("%sconfigured%s (no key)", colorGreen, colorReset)
		default:
			status = fmt.Sprintf("%snot configured%s", colorRed, colorReset)
		}
		lines = append(lines, fmt.Sprintf("  %-14s %s", p.id, status))
		if entry != nil && entry.BaseURL != "" {
			lines = append(lines, fmt.Sprintf("  %14s endpoint: %s", "", entry.BaseURL))
		}
		if env := settings.EnvVarForProvider(p.id); env != "" && os.Getenv(env) != "" {
			lines = append(lines, fmt.Sprintf("  %14s %s is set", "", env))
		}
	}
	if v := os.Getenv(settings.EnvAPIKey); v != "" {
		lines = append(lines, fmt.Sprintf("  %s: %s%s%s (overrides stored keys)", settings.EnvAPIKey, colorGreen, settings.MaskKey(v), colorReset))
	} else {
		lines = append(lines, fmt.Sprintf("  %s: %snot set%s", settings.EnvAPIKey, colorRed, colorReset))
	}
	return lines
}

func completeKeyProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ids := make([]string, 0, len(keyProviders))
	for _, p := range keyProviders {
		ids = append(ids, p.id)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
