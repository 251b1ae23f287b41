package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"caneco-bridge/internal/assemble"
	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/config"
	"caneco-bridge/internal/convert"
	"caneco-bridge/internal/db"
	"caneco-bridge/internal/record"
	"caneco-bridge/internal/runs"
)

func main() {
	inPath := flag.String("in", "", "input equipment schedule (.csv, .tsv, .txt)")
	outPath := flag.String("out", "", "output xml path")
	cfgPath := flag.String("config", "", "optional config file path")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	f, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	start := time.Now()

	records, err := record.Normalize(f, *inPath)
	if err != nil {
		log.Fatalf("parse input: %v", err)
	}

	res, err := convert.Run(cat, records, convert.Meta{
		ProjectName: cfg.Project.Name,
		CompanyName: cfg.Project.Company,
		StartDate:   cfg.Project.StartDate,
	})
	if err != nil {
		log.Fatalf("convert: %v", err)
	}

	if err := assemble.WriteFile(*outPath, res.XML); err != nil {
		log.Fatalf("write output: %v", err)
	}

	recordRun(cfg, *inPath, res.Summary, time.Since(start))

	fmt.Printf("%s: %d records, %d matched, %d skipped, %d defaulted\n",
		*outPath, res.Summary.Total, res.Summary.Matched,
		res.Summary.Skipped, res.Summary.Defaulted)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogDir != "" {
		return catalog.LoadDir(cfg.CatalogDir)
	}
	return catalog.LoadEmbedded()
}

// recordRun writes run history when a database is configured. Failures
// are logged, not fatal: the output file is already on disk.
func recordRun(cfg *config.Config, source string, s convert.Summary, elapsed time.Duration) {
	if cfg.DBDSN == "" {
		return
	}

	pool, err := db.NewPool(cfg.DBDSN)
	if err != nil {
		log.Printf("db connect: %v", err)
		return
	}
	defer pool.Close()

	run := runs.Run{
		Source:     filepath.Base(source),
		Total:      s.Total,
		Matched:    s.Matched,
		Skipped:    s.Skipped,
		Defaulted:  s.Defaulted,
		Status:     runs.StatusOK,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := runs.Insert(context.Background(), pool, &run); err != nil {
		log.Printf("record run: %v", err)
	}
}
