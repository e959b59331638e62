package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nullhash/draizer/config"
	"github.com/nullhash/draizer/internal/supervisor"
)

func main() {
	configPath := flag.String("c", "config/config.json", "path to configuration file")
	paperFlag := flag.Int("p", -1, "paper/live toggle: 0 = live, 1 = paper (overrides config)")
	status := flag.Bool("status", false, "print the shared-memory status table and exit")
	help := flag.Bool("h", false, "print usage and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	if *status {
		if err := runStatus(); err != nil {
			fmt.Fprintln(os.Stderr, "draizer: status:", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("draizer: failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *paperFlag == 0 {
		cfg.PaperMode = false
	} else if *paperFlag == 1 {
		cfg.PaperMode = true
	}

	slog.Info("draizer starting", "config", *configPath, "paper_mode", cfg.PaperMode, "capital_usd", cfg.CapitalUSD)

	opts := supervisor.Options{
		Config:      cfg,
		Symbols:     []string{"BTCUSD", "ETHUSD", "SOLUSD"},
		SpotVenue:   supervisor.VenueEndpoint{Name: "spot", WSURL: "wss://stream.spot.example/ws"},
		PerpVenue:   supervisor.VenueEndpoint{Name: "perp", WSURL: "wss://stream.perp.example/ws", FundingURL: "https://api.perp.example/funding", Perp: true},
		ReaderCore:  0,
		MatcherCore: 1,
	}

	sup, err := supervisor.New(opts)
	if err != nil {
		slog.Error("draizer: initialization failed", "error", err)
		os.Exit(1)
	}

	if err := sup.Run(context.Background()); err != nil {
		slog.Error("draizer: run failed", "error", err)
		os.Exit(1)
	}
}
