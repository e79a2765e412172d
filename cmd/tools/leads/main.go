package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/config"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

func main() {
	due := flag.Bool("due", false, "Only show leads with an overdue follow-up")
	status := flag.String("status", "", "Filter on pipeline status")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	kv, err := db.OpenKV(ctx, cfg.StoreBackend, cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	store := db.NewStore(kv)
	defer store.Close()

	var leads []models.Lead
	if *due {
		leads, err = store.DueFollowUps(ctx, time.Now())
	} else {
		leads, err = store.ListLeads(ctx)
	}
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Company", "Industry", "City", "Status", "Email", "Messages", "Follow-up"})

	for _, l := range leads {
		if *status != "" && string(l.Status) != *status {
			continue
		}
		ind := l.Industry
		if i, ok := industry.Lookup(l.Industry); ok {
			ind = i.Label
		}
		followUp := "-"
		if l.NextFollowUp != nil {
			followUp = l.NextFollowUp.Local().Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{l.CompanyName, ind, l.City, l.Status, l.Email, len(l.Messages), followUp})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", t.Length()})
	t.Render()
}
