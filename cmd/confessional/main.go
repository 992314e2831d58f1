package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}
	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

type globalFlags struct {
	ConfigPath string
	BaseURL    string
}

func main() {
	_ = godotenv.Load(".env")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	flags := &globalFlags{}
	return &cli.Command{
		Name:      "confessional",
		Usage:     "Anonymous community confession board",
		UsageText: "confessional [global options] [command [command options]]",
		Description: `Runs the confessional board server, or talks to a running one.

Run 'confessional' with no arguments to start the server.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to a YAML config file",
				Sources:     cli.EnvVars("CONFESSIONAL_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "url",
				Usage:       "board URL for client commands",
				Sources:     cli.EnvVars("CONFESSIONAL_URL"),
				Value:       "http://localhost:3000",
				Destination: &flags.BaseURL,
			},
		},
		Commands: []*cli.Command{
			serveCommand(flags),
			hashPasswordCommand(),
			readCommand(flags),
			postCommand(flags),
			likeCommand(flags, "like"),
			likeCommand(flags, "unlike"),
			reportCommand(flags),
			loginCommand(flags),
			logoutCommand(flags),
			deleteCommand(flags),
			reportsCommand(flags),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() > 0 {
				return fmt.Errorf("unknown command %q. Run 'confessional --help' for usage", c.Args().First())
			}
			return runServe(ctx, flags.ConfigPath)
		},
	}
}
