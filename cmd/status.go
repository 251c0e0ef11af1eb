package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tidehub/hubchat/auth"
	"github.com/tidehub/hubchat/config"
	"github.com/tidehub/hubchat/internal/health"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Check hub reachability and credentials",
	GroupID: "setup",
	RunE:    runStatus,
}

var statusSkipToken bool

func init() {
	statusCmd.Flags().BoolVar(&statusSkipToken, "no-token", false, "Skip the token mint check")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: timeout}
	opts := health.Options{
		HubURL:     cfg.Hub.BaseURL,
		HTTPClient: httpClient,
	}
	if !statusSkipToken {
		opts.Tokens = auth.NewManager(cfg.Hub.BaseURL, httpClient)
	}

	snapshot := health.Collect(cmd.Context(), opts)
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
