package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"demandcast/internal/app"
	"demandcast/internal/infrastructure"
	"demandcast/internal/services"
	"demandcast/internal/tui"
)

func main() {
	var sources app.SourceList
	configPath := flag.String("config", "", "path to a YAML config file (defaults to config.yaml or $DEMANDCAST_CONFIG)")
	flag.Var(&sources, "source", "transaction source: file.csv, book.xlsx[#Sheet] or sheets://<id>/<range> (repeatable)")
	flag.Parse()

	if err := run(*configPath, sources); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, sources []string) error {
	cfg, err := app.LoadConfig(app.Options{ConfigPath: configPath, Sources: sources})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// the terminal belongs to the UI, logs go to the file only
	cfg.Logging.Output = "file"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	pipeline, err := app.NewPipeline(cfg, nil, nil, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	fmt.Fprintf(os.Stderr, "Loading %d source(s)...\n", len(cfg.Data.Sources))
	if err := pipeline.Load(ctx); err != nil {
		logger.Error("dataset load failed", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", services.UserMessage(err), err)
	}

	_, err = tea.NewProgram(tui.New(ctx, pipeline.Forecasts), tea.WithAltScreen()).Run()
	return err
}
