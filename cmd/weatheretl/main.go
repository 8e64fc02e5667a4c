package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"github.com/datamesa/weatheretl/internal/app"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

// embeddedConfig embeds the application's YAML configuration file so the
// binary carries its own defaults.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [command]

Commands:
  extract   fetch weather data and write the parquet snapshot
  load      upsert the parquet snapshot into the destination table
  run       extract then load (default)
  schedule  run the pipeline repeatedly at the configured interval
`, os.Args[0])
}

// main parses the command, installs signal handling and runs the application.
// Any pipeline failure exits non-zero.
func main() {
	command := app.CommandRun
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case app.CommandExtract, app.CommandLoad, app.CommandRun, app.CommandSchedule:
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the pipeline...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	if err := app.RunApplication(ctx, envFilePath, embeddedConfig, command); err != nil {
		logger.Errorf("Command '%s' failed: %v", command, err)
		os.Exit(1)
	}
	os.Exit(0)
}
