package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tidehub/hubchat/config"
)

var onboardCmd = &cobra.Command{
	Use:     "onboard",
	Short:   "Initialize hubchat configuration",
	GroupID: "setup",
	Long:    `Create the hubchat configuration directory and default config file.`,
	RunE:    runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config already exists at:", configPath)
		fmt.Println("To reconfigure, edit the file directly or delete it first.")
		return nil
	}

	// --- interactive wizard ---

	var (
		hubURL       string
		modelAssetID string
		logLevel     string
	)

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hub base URL").
				Description("The hub this client talks to, e.g. https://hub.example.com").
				Placeholder("https://").
				Validate(validateHubURL).
				Value(&hubURL),
			huh.NewInput().
				Title("Model asset ID (optional)").
				Description("Sent with each message so the hub routes to a specific model. Leave empty for the hub default.").
				Value(&modelAssetID),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("info (recommended)", "info"),
					huh.NewOption("debug (verbose, includes dropped frames)", "debug"),
					huh.NewOption("warn", "warn"),
				).
				Value(&logLevel),
		),
	).Run()
	if err != nil {
		return fmt.Errorf("onboarding cancelled: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.Hub.BaseURL = strings.TrimRight(strings.TrimSpace(hubURL), "/")
	cfg.Hub.ModelAssetID = strings.TrimSpace(modelAssetID)
	cfg.Logging.Level = logLevel

	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Println("Config written to:", configPath)
	fmt.Println("Run `hubchat chat` to start a conversation.")
	return nil
}

func validateHubURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("hub URL is required")
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}
