package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const sectionRule = "# -----------------------------------------------------------------------------\n"

type envSection struct {
	title string
	flags []string
}

var envSections = []envSection{
	{"Spotify Configuration", []string{
		"spotify-client-id", "spotify-client-secret", "spotify-redirect-url",
		"spotify-token-path", "spotify-market", "spotify-requests-per-second",
	}},
	{"Composition", []string{"seed", "watch-debounce"}},
	{"Backups", []string{"backup-dir", "catalog-path"}},
	{"HTTP Server Configuration", []string{"server-host", "server-port", "compose-rate-per-minute"}},
	{"Logging Configuration", []string{"log-level", "log-format"}},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# chorus Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: CHORUS_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		content.WriteString(sectionRule)
		fmt.Fprintf(&content, "# %s\n", section.title)
		content.WriteString(sectionRule)
		for _, name := range section.flags {
			f := cmd.PersistentFlags().Lookup(name)
			if f == nil {
				continue
			}
			fmt.Fprintf(&content, "# %s (default: %q)\n", f.Usage, f.DefValue)
			fmt.Fprintf(&content, "%s=%s\n", flagToEnvVar(name), f.DefValue)
		}
		content.WriteString("\n")
	}

	content.WriteString("# Spotify setup:\n")
	content.WriteString("#    - Go to https://developer.spotify.com/dashboard\n")
	content.WriteString("#    - Create new app and add redirect URI: http://127.0.0.1:8080/callback\n")
	content.WriteString("#    - Copy Client ID and Secret to config above\n")

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return "CHORUS_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
