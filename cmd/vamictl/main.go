// vamictl - Vami console from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/vami-console/internal/cli"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
