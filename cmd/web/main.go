package main

import (
	"flag"
	"log/slog"
	"os"

	"demandcast/internal/app"
)

func main() {
	var sources app.SourceList
	configPath := flag.String("config", "", "path to a YAML config file (defaults to config.yaml or $DEMANDCAST_CONFIG)")
	flag.Var(&sources, "source", "transaction source: file.csv, book.xlsx[#Sheet] or sheets://<id>/<range> (repeatable)")
	flag.Parse()

	application, err := app.NewApplication(app.Options{
		ConfigPath: *configPath,
		Sources:    sources,
	})
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
