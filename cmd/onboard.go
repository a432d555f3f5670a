package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/natterhub/natter/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

// runOnboard walks the user through a minimal first configuration and writes
// it to the config path. API keys and platform tokens are never written to
// the file; the wizard prints the env vars to export instead.
func runOnboard() {
	cfgPath := resolveConfigPath()

	var (
		botName      string
		providerType = "anthropic"
		providerName string
		model        string
		platforms    []string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot name").
				Placeholder("natter").
				Value(&botName),
			huh.NewSelect[string]().
				Title("Completion provider").
				Options(
					huh.NewOption("Anthropic", "anthropic"),
					huh.NewOption("OpenAI-compatible", "openai"),
				).
				Value(&providerType),
			huh.NewInput().
				Title("Provider name").
				Description("Used for logs and the NATTER_<NAME>_API_KEY env var").
				Placeholder("anthropic").
				Value(&providerName),
			huh.NewInput().
				Title("Model (blank for provider default)").
				Value(&model),
			huh.NewMultiSelect[string]().
				Title("Chat platforms").
				Options(
					huh.NewOption("Telegram", "telegram"),
					huh.NewOption("Discord", "discord"),
				).
				Value(&platforms),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println("Setup cancelled.")
		os.Exit(1)
	}

	if botName == "" {
		botName = "natter"
	}
	if providerName == "" {
		providerName = providerType
	}

	cfg := config.Default()
	cfg.Bot.ID = uuid.NewString()
	cfg.Bot.Name = botName
	cfg.Providers.Instances = []config.ProviderInstance{{
		ID:    uuid.NewString(),
		Name:  providerName,
		Type:  providerType,
		Model: model,
	}}
	for _, p := range platforms {
		switch p {
		case "telegram":
			cfg.Channels.Telegram.Enabled = true
		case "discord":
			cfg.Channels.Discord.Enabled = true
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Println("Failed to encode config:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(cfgPath, append(data, '\n'), 0600); err != nil {
		fmt.Println("Failed to write config:", err)
		os.Exit(1)
	}

	envName := strings.ToUpper(strings.ReplaceAll(providerName, "-", "_"))
	fmt.Printf("Wrote %s\n\n", cfgPath)
	fmt.Println("Secrets stay out of the config file. Export them before starting:")
	fmt.Printf("  export NATTER_%s_API_KEY=...\n", envName)
	for _, p := range platforms {
		fmt.Printf("  export NATTER_%s_TOKEN=...\n", strings.ToUpper(p))
	}
	fmt.Println()
	fmt.Println("Then run:  ./natter")
}
