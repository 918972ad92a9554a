package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/daystreams/internal"
	pkgconfig "github.com/starford/daystreams/pkg/config"
)

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func browse(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if path := cmd.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		opts = append(opts, internal.WithLogOutput(f))
	}
	return internal.RunBrowse(ctx, opts...)
}

func calendar(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: daystreams calendar [--month YYYY-MM] <stream>")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.PrintCalendar(ctx, os.Stdout, cmd.Args().First(), cmd.String("month"), opts...)
}

func streamsList(_ context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ListStreams(os.Stdout, opts...)
}

func streamsAdd(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: daystreams streams add <name> <folder>")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.AddStream(os.Stdout, cmd.Args().Get(0), cmd.Args().Get(1), opts...)
}

func streamsRemove(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: daystreams streams remove <id|name>")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RemoveStream(os.Stdout, cmd.Args().First(), opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "daystreams",
		Usage:  "Daily notes organised in streams, with calendar navigation over a Markdown vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with server-sent events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:   "browse",
				Usage:  "Browse daily notes in the terminal",
				Action: browse,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "Append logs to this file",
					},
				},
			},
			{
				Name:      "calendar",
				Usage:     "Print a month of a stream",
				ArgsUsage: "<stream>",
				Action:    calendar,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "month",
						Aliases: []string{"m"},
						Usage:   "Month as YYYY-MM (default: current)",
					},
				},
			},
			{
				Name:  "streams",
				Usage: "Manage configured streams",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List streams",
						Action: streamsList,
					},
					{
						Name:      "add",
						Usage:     "Add a stream",
						ArgsUsage: "<name> <folder>",
						Action:    streamsAdd,
					},
					{
						Name:      "remove",
						Usage:     "Remove a stream; its notes stay on disk",
						ArgsUsage: "<id|name>",
						Action:    streamsRemove,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
