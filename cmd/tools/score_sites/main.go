package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/fetch"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/scorer"
)

func main() {
	urls := flag.String("urls", "", "Comma-separated list of websites")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	var list []string
	for _, u := range strings.Split(*urls, ",") {
		if u = strings.TrimSpace(u); u != "" {
			list = append(list, u)
		}
	}
	if len(list) == 0 {
		log.Fatal("-urls is required")
	}

	_ = godotenv.Load()
	s := scorer.New(scorer.NewPageSpeedClient(os.Getenv("PAGESPEED_API_KEY")), fetch.NewCollyFetcher(scorer.FetchTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	scores, err := s.ScoreURLs(ctx, list)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"URL", "Score", "Prospect", "HTTPS", "Viewport", "Platform", "Issues"})
	for _, sc := range scores {
		if !sc.Reachable {
			t.AppendRow(table.Row{sc.URL, "-", sc.ProspectScore, "-", "-", "-", "unreachable"})
			continue
		}
		t.AppendRow(table.Row{sc.URL, sc.OverallScore, sc.ProspectScore, sc.HasHTTPS, sc.HasMobileViewport, sc.LegacyPlatform, strings.Join(sc.Issues, "; ")})
	}
	t.Render()
}
