package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/config"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/csvimport"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
)

func main() {
	path := flag.String("file", "", "CSV file to import")
	dryRun := flag.Bool("dry-run", false, "Parse and report without saving")
	flag.Parse()

	if *path == "" {
		log.Fatal("-file is required")
	}
	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal(err)
	}

	var res *csvimport.Result
	if *dryRun {
		res, err = csvimport.Parse(string(raw))
	} else {
		_ = godotenv.Load()
		cfg, cerr := config.Load()
		if cerr != nil {
			log.Fatal(cerr)
		}
		ctx := context.Background()
		kv, kerr := db.OpenKV(ctx, cfg.StoreBackend, cfg.DatabaseURL, cfg.RedisURL)
		if kerr != nil {
			log.Fatal(kerr)
		}
		store := db.NewStore(kv)
		defer store.Close()
		res, err = csvimport.Import(ctx, store, string(raw))
	}
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Columns:  %v\n", res.MappedColumns)
	fmt.Printf("Rows:     %d\n", res.TotalRows)
	fmt.Printf("Imported: %d\n", res.ImportedCount)
	fmt.Printf("Skipped:  %d\n", res.SkippedCount)
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e)
	}
}
