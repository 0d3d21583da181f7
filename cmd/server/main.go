package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ledgerline/invoice-adjust-backend/internal/cli"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/config"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")

	flags := cli.ParseServeFlags()

	cfg := config.LoadOrEnvWithPath(configFile)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
