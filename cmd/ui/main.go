package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"gapfill/adapters/excel"
	"gapfill/adapters/stats/temporal"
	"gapfill/internal/config"
	"gapfill/internal/container"
	"gapfill/internal/gapreport"
	"gapfill/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	input := flag.String("input", cfg.Data.InputFile, "CSV or XLSX file to report on")
	flag.Parse()
	if *input == "" {
		log.Fatal("an input file is required (-input or INPUT_FILE)")
	}

	// The viewer reports on the file without recording a job.
	cfg.Database.URL = ""
	ctx := context.Background()
	c, err := container.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}

	table, err := excel.NewDataReader(*input).ReadTable()
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *input, err)
	}
	if cfg.Data.RegularizeHourly {
		if table, _, err = temporal.Regularize(table, temporal.DefaultGridConfig()); err != nil {
			log.Fatalf("Failed to regularize %s: %v", *input, err)
		}
	}
	if table, err = c.Imputation.Prepare(table); err != nil {
		log.Fatalf("Invalid table %s: %v", *input, err)
	}
	imputed, ds, err := c.Imputation.ImputeTable(ctx, filepath.Base(*input), table)
	if err != nil {
		log.Fatalf("Imputation failed: %v", err)
	}
	report, err := gapreport.Build(table, imputed, ds, cfg.Policy())
	if err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}

	app, err := ui.NewApp(ui.Config{Port: cfg.Server.UIPort}, report)
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}
	log.Fatal(app.Start())
}
