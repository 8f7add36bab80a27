// Command server runs the approval-review HTTP surface and the background
// approval-queue worker.
//
// @title GST Pipeline Review API
// @version 1.0
// @description Approval-review surface for the GST batch pipeline
// @BasePath /api/v1
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gstpipeline/internal/approvalqueue"
	"gstpipeline/internal/config"
	"gstpipeline/internal/exception"
	"gstpipeline/internal/handler"
	"gstpipeline/internal/middleware"
	"gstpipeline/internal/notify"
	"gstpipeline/internal/repository/postgres"
	"gstpipeline/internal/router"
)

func main() {
	issueToken := flag.Bool("issue-token", false, "print a review API token and exit")
	tokenSubject := flag.String("subject", "operator", "token subject (with -issue-token)")
	tokenRole := flag.String("role", "finance", "token role: operator|finance|admin (with -issue-token)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *issueToken {
		token, err := middleware.GenerateToken(&cfg.JWT, *tokenSubject, *tokenRole)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	notifier, err := notify.FromConfig(&cfg.Notify)
	if err != nil {
		log.Fatalf("failed to build notifier: %v", err)
	}

	approvals := postgres.NewApprovalRepo(db)
	items := postgres.NewItemMasterRepo(db)
	ledgers := postgres.NewLedgerMasterRepo(db)
	applier := approvalqueue.NewApplier(approvals, items, ledgers)

	worker := approvalqueue.NewWorker(approvals, applier, notifier, exception.DefaultRules(),
		approvalqueue.WorkerConfig{
			PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
			Concurrency:  cfg.Queue.Concurrency,
		})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go worker.Start(ctx)

	engine := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(db),
		Approval: handler.NewApprovalHandler(approvals, applier),
		Run: handler.NewRunHandler(
			postgres.NewRunRepo(db),
			postgres.NewExceptionRepo(db),
			postgres.NewAuditLogRepo(db),
			postgres.NewMISRepo(db),
		),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("review API listening on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
