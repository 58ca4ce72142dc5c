package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/validate"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !cmd.IsSet("config") {
		// No config file is fine when everything comes from flags.
	} else if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := cmd.String("order-file"); v != "" {
		cfg.Library.OrderFile = v
	}
	if v := cmd.String("root"); v != "" {
		cfg.Library.Root = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// withManager runs fn against a fully loaded manager and tears it down.
func withManager(ctx context.Context, cmd *cli.Command, deep bool, fn func(*library.Manager) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg.App.LogLevel)

	m, closeCache, err := internal.OpenManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	if deep {
		err = m.Load(ctx)
	} else {
		err = m.LoadQuick(ctx)
	}
	if err != nil {
		return err
	}
	return fn(m)
}

func printOrder(m *library.Manager) {
	for _, e := range m.Entries() {
		state := " "
		if !e.Enabled {
			state = "D"
		}
		pin := ""
		if e.Pinned {
			pin = " *"
		}
		fmt.Printf("%s %3d  %-14s %s%s\n", state, e.Score, e.Category, e.Name, pin)
	}
	if un := m.Unmanaged(); len(un) > 0 {
		fmt.Printf("\n%d folder(s) on disk but not in the order file:\n", len(un))
		for _, e := range un {
			fmt.Printf("  %s\n", e.Name)
		}
	}
	for _, pe := range m.ParseErrors() {
		fmt.Printf("skipped line %d: %s\n", pe.Line, pe.Reason)
	}
}

func printIssues(issues []validate.Issue) {
	if len(issues) == 0 {
		fmt.Println("no issues found")
		return
	}
	for _, is := range issues {
		fmt.Printf("[%s] %s: %s\n", is.Severity, is.Type, is.Message)
		if is.Fix != "" {
			fmt.Printf("    fix: %s\n", is.Fix)
		}
	}
}

func main() {
	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("RAIDO_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "order-file",
			Usage:   "Path to the load-order file (overrides config)",
			Sources: cli.EnvVars("RAIDO_ORDER_FILE"),
		},
		&cli.StringFlag{
			Name:    "root",
			Usage:   "Scenery library directory (overrides config)",
			Sources: cli.EnvVars("RAIDO_ROOT"),
		},
	}

	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Scenery load-order manager: classify, score, sort and validate addon packs",
		Flags: commonFlags,
		Commands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Load the library and print the current order",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "deep", Usage: "Run the full content scan inline"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withManager(ctx, cmd, cmd.Bool("deep"), func(m *library.Manager) error {
						printOrder(m)
						return nil
					})
				},
			},
			{
				Name:  "sort",
				Usage: "Compute the recommended order; --commit writes it back",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "commit", Usage: "Write the sorted order to the order file"},
					&cli.BoolFlag{Name: "deep", Usage: "Run the full content scan first"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withManager(ctx, cmd, cmd.Bool("deep"), func(m *library.Manager) error {
						m.Sort()
						printOrder(m)
						if cmd.Bool("commit") {
							return m.Commit(ctx)
						}
						return nil
					})
				},
			},
			{
				Name:  "commit",
				Usage: "Write the current in-memory order back to the order file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withManager(ctx, cmd, false, func(m *library.Manager) error {
						return m.Commit(ctx)
					})
				},
			},
			{
				Name:  "validate",
				Usage: "Report ordering problems in the current order",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withManager(ctx, cmd, true, func(m *library.Manager) error {
						printIssues(m.Validate())
						return nil
					})
				},
			},
			{
				Name:      "enable",
				Usage:     "Enable a pack and commit",
				ArgsUsage: "<name>",
				Action:    toggleAction(true),
			},
			{
				Name:      "disable",
				Usage:     "Disable a pack and commit",
				ArgsUsage: "<name>",
				Action:    toggleAction(false),
			},
			{
				Name:      "pin",
				Usage:     "Pin a pack to an explicit score and commit",
				ArgsUsage: "<name> <score>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().Get(0)
					score, err := strconv.Atoi(cmd.Args().Get(1))
					if name == "" || err != nil {
						return fmt.Errorf("usage: pin <name> <score>")
					}
					return withManager(ctx, cmd, false, func(m *library.Manager) error {
						if err := m.SetOverride(name, score); err != nil {
							return err
						}
						m.Sort()
						return m.Commit(ctx)
					})
				},
			},
			{
				Name:      "unpin",
				Usage:     "Remove a pack's pin (or all pins) and commit",
				ArgsUsage: "[name]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Remove every pin"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().Get(0)
					if name == "" && !cmd.Bool("all") {
						return fmt.Errorf("usage: unpin <name> or unpin --all")
					}
					return withManager(ctx, cmd, false, func(m *library.Manager) error {
						var err error
						if cmd.Bool("all") {
							err = m.ClearAllOverrides()
						} else {
							err = m.ClearOverride(name)
						}
						if err != nil {
							return err
						}
						m.Sort()
						return m.Commit(ctx)
					})
				},
			},
			{
				Name:  "rules",
				Usage: "Manage the classification and scoring rule table",
				Commands: []*cli.Command{
					{
						Name:      "export",
						Usage:     "Write the active rule table to a YAML file",
						ArgsUsage: "<path>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							out := cmd.Args().Get(0)
							if out == "" {
								return fmt.Errorf("usage: rules export <path>")
							}
							cfg, err := loadConfig(cmd)
							if err != nil {
								return err
							}
							table, err := rules.Load(cfg.Rules.Path)
							if err != nil {
								return err
							}
							return table.Save(out)
						},
					},
					{
						Name:      "import",
						Usage:     "Validate a rule table file and make it active",
						ArgsUsage: "<path>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							in := cmd.Args().Get(0)
							if in == "" {
								return fmt.Errorf("usage: rules import <path>")
							}
							cfg, err := loadConfig(cmd)
							if err != nil {
								return err
							}
							if cfg.Rules.Path == "" {
								return fmt.Errorf("rules: no rules path configured to import into")
							}
							table, err := rules.Load(in)
							if err != nil {
								return err
							}
							return table.Save(cfg.Rules.Path)
						},
					},
				},
			},
			{
				Name:  "watch",
				Usage: "Run continuously, reloading when the order file changes",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.Run(ctx, internal.WithConfig(cfg))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func toggleAction(enabled bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().Get(0)
		if name == "" {
			return fmt.Errorf("usage: %s <name>", cmd.Name)
		}
		return withManager(ctx, cmd, false, func(m *library.Manager) error {
			if err := m.SetEnabled(name, enabled); err != nil {
				return err
			}
			return m.Commit(ctx)
		})
	}
}
