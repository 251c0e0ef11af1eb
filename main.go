// hubchat is a terminal client for hub conversations.
package main

import (
	"fmt"
	"os"

	"github.com/tidehub/hubchat/cmd"
	"github.com/tidehub/hubchat/config"
	"github.com/tidehub/hubchat/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	configDir, _ := config.ConfigDir()
	if err := logger.Init(cfg.BuildLoggerConfig(), configDir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
	}
	cmd.Execute()
}
