package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/cli"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
)

// configDirArg pre-parses the --config flag from the argument list, in both
// the "--config DIR" and "--config=DIR" spellings cobra accepts.
func configDirArg(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if dir, ok := strings.CutPrefix(arg, "--config="); ok {
			return dir
		}
	}
	return ""
}

func main() {
	// The --config flag has to be read before cobra parses anything,
	// because the config decides how the rest of the app is wired.
	cfg, err := config.Load(configDirArg(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()
	rootCmd := cli.NewRootCmd(cfg, logger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
