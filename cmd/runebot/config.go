package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/aristath/runebot/internal/config"
)

func newConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Create or inspect configuration",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination file; .yaml or .yml writes YAML",
						Value: config.ProjectPath(),
					},
					&cli.StringFlag{
						Name:  "bot",
						Usage: "Bot the new configuration runs",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: json or yaml",
						Value: "json",
					},
				},
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if !cmd.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	cfg := config.DefaultConfig()
	if cmd.IsSet("bot") {
		cfg.Bot = cmd.String("bot")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.Root().Writer, "Wrote %s\n", path)
	return err
}

func runConfigShow(_ context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	data, err := config.Marshal(cfg, format)
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(data)
	return err
}
