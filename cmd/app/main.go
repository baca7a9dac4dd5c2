package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/petpad/internal"
	"github.com/starford/petpad/internal/codec"
	"github.com/starford/petpad/internal/highlight"
	"github.com/starford/petpad/internal/palette"
	"github.com/starford/petpad/internal/storage"
	"github.com/starford/petpad/internal/vars"
	pkgconfig "github.com/starford/petpad/pkg/config"
)

// loadConfig reads the --config file. When optional is set a missing file
// yields the defaults instead of an error.
func loadConfig(cmd *cli.Command, optional bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	var err error
	if optional {
		_, err = pkgconfig.LoadOptional(configPath, cfg)
	} else {
		err = pkgconfig.Load(configPath, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// check decodes every file and reports the ones that fail.
func check(_ context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("check: at least one FILE is required")
	}
	failed := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
			continue
		}
		snippets, err := codec.Decode(string(data))
		if err != nil {
			failed++
			var derr *codec.DecodeError
			if errors.As(err, &derr) && derr.Line > 0 {
				fmt.Fprintf(os.Stderr, "%s:%d: %s\n", f, derr.Line, derr.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
			}
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: ok (%d snippets)\n", f, len(snippets))
	}
	if failed > 0 {
		return fmt.Errorf("check: %d of %d files failed", failed, len(files))
	}
	return nil
}

// format prints the canonical encoding of FILE, or rewrites it in place.
func format(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("fmt: exactly one FILE is required")
	}
	f := cmd.Args().First()
	data, err := os.ReadFile(f)
	if err != nil {
		return err
	}
	snippets, err := codec.Decode(string(data))
	if err != nil {
		return fmt.Errorf("fmt: %s: %w", f, err)
	}
	out := codec.Encode(snippets)

	if !cmd.Bool("write") {
		_, err := fmt.Fprint(os.Stdout, out)
		return err
	}
	if out == string(data) {
		return nil
	}
	abs, err := filepath.Abs(f)
	if err != nil {
		return err
	}
	fs, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return err
	}
	return fs.Write(filepath.Base(abs), []byte(out))
}

// showVars prints the variables of COMMAND and the highlighted command.
func showVars(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("vars: exactly one COMMAND is required")
	}
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	pal, err := palette.NewStore(cfg.Palette.File, cfg.Palette.Colors)
	if err != nil {
		return err
	}
	p := vars.NewParser(pal)
	if cfg.Palette.Fallback != "" {
		p = p.WithFallback(cfg.Palette.Fallback)
	}

	command := cmd.Args().First()
	h := highlight.New(os.Stdout)
	fmt.Fprint(os.Stdout, h.Variables(p.Parse(command)))
	fmt.Fprintln(os.Stdout, h.Command(command, p.Positions(command)))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "petpad",
		Usage:  "Command snippet manager with templated placeholders, fuzzy search and a REST/MCP API",
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
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "check",
				Usage:     "Decode snippet documents and report errors",
				ArgsUsage: "FILE...",
				Action:    check,
			},
			{
				Name:      "fmt",
				Usage:     "Print a snippet document in canonical layout",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "Rewrite the file instead of printing it",
					},
				},
				Action: format,
			},
			{
				Name:      "vars",
				Usage:     "Show the placeholders of a command template",
				ArgsUsage: "COMMAND",
				Action:    showVars,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
