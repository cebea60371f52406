package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/healing"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	dim    = color.New(color.Faint)
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: healing [flags] <command>

Commands:
  status    show whether self-healing is enabled for the next run
  enable    turn self-healing on
  disable   turn self-healing off
  events    list recent heals from the locator history

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	godotenv.Load()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		red.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	path := flag.String("file", cfg.Healing.PropertiesPath, "Healing properties file")
	limit := flag.Int("limit", 20, "Number of events to list")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	toggle := healing.NewToggle(*path, logger)

	switch flag.Arg(0) {
	case "status":
		printStatus(toggle, cfg.Healing)
	case "enable":
		toggle.Enable()
		printStatus(toggle, cfg.Healing)
	case "disable":
		toggle.Disable()
		printStatus(toggle, cfg.Healing)
	case "events":
		if err := listEvents(cfg, logger, *limit); err != nil {
			red.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func printStatus(toggle *healing.Toggle, cfg config.HealingConfig) {
	if toggle.Enabled() {
		green.Printf("Self-healing enabled")
	} else {
		yellow.Printf("Self-healing disabled")
	}
	dim.Printf(" (%s)\n", toggle.Path())

	if cfg.Enabled != nil {
		yellow.Printf("HEALING_ENABLED=%t overrides the file\n", *cfg.Enabled)
	}
}

func listEvents(cfg *config.Config, logger *zap.Logger, limit int) error {
	store, closeStore, err := healing.OpenStore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := store.Events(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing heal events: %w", err)
	}
	if len(events) == 0 {
		dim.Printf("No heals recorded in the %s store\n", cfg.Healing.Backend)
		return nil
	}

	for _, ev := range events {
		fmt.Printf("%s  %s\n", ev.CreatedAt.Local().Format(time.DateTime), ev.Key.Page)
		dim.Printf("    %s -> %s (score %.2f)\n", ev.Key.Locator, ev.Healed, ev.Score)
	}
	return nil
}
