package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "safelink/internal/adapters/http"
	pg "safelink/internal/adapters/postgres"
	"safelink/internal/config"
	insightsvc "safelink/internal/services/insights"
	risksvc "safelink/internal/services/risk"
	scansvc "safelink/internal/services/scanner"
	scanworker "safelink/internal/workers/scanrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model, err := risksvc.Load(cfg.ModelPath)
	if err != nil {
		log.Fatalf("risk model load error: %v (train one with safelink-train -out %s)", err, cfg.ModelPath)
	}

	policy := scansvc.DefaultPolicy()
	if cfg.PolicyPath != "" {
		policy, err = scansvc.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			log.Fatalf("policy load error: %v", err)
		}
	}

	scanner := scansvc.New(policy, scansvc.NewWhoisClient(policy.StageTimeout), model)
	insights := insightsvc.New()

	var srv *httpadapter.Server
	if cfg.DatabaseURL != "" {
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		defer db.Close()

		processor := scanworker.Processor{Scanner: scanner, Jobs: db, Scans: db}
		srv = httpadapter.New(scanner, insights, db, db, db, processor)

		if cfg.ScanWorkers > 0 {
			go scanworker.Run(ctx, db, processor, cfg.ScanWorkers, 500*time.Millisecond)
			log.Printf("scan workers started: %d", cfg.ScanWorkers)
		}
	} else {
		log.Printf("running stateless: scans will not be persisted")
		srv = httpadapter.New(scanner, insights, nil, nil, nil, nil)
	}

	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Printf("listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
