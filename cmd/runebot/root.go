package main

import (
	"github.com/urfave/cli/v3"

	"github.com/aristath/runebot/internal/config"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "runebot",
		Usage: "Task-stack automation for the RuneLite bridge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Project config file layered over ~/.runebot/config.json (default .runebot/config.json)",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newSessionsCommand(),
			newConfigCommand(),
		},
	}
}

// loadConfig loads the global config and the project config named by
// --config, falling back to the conventional paths.
func loadConfig(cmd *cli.Command) (*config.BotConfig, error) {
	path := cmd.String("config")
	if path == "" {
		return config.LoadDefault()
	}
	globalPath, err := config.GlobalPath()
	if err != nil {
		return nil, err
	}
	return config.Load(globalPath, path)
}
