package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nuacha-app/nuacha/internal/api"
	"github.com/nuacha-app/nuacha/internal/auth"
	"github.com/nuacha-app/nuacha/internal/billing"
	"github.com/nuacha-app/nuacha/internal/categorize"
	"github.com/nuacha-app/nuacha/internal/config"
	"github.com/nuacha-app/nuacha/internal/expenses"
	"github.com/nuacha-app/nuacha/internal/importer"
	"github.com/nuacha-app/nuacha/internal/leads"
	"github.com/nuacha-app/nuacha/internal/ocr"
	"github.com/nuacha-app/nuacha/internal/payroll"
	"github.com/nuacha-app/nuacha/internal/storage"
	"github.com/nuacha-app/nuacha/internal/store"
	"github.com/nuacha-app/nuacha/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the receipt OCR worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func (a *app) serve(ctx context.Context, cfg *config.Config) error {
	logger := a.logger
	if !a.verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.Open(cfg.Database.Driver, a.dsn(cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	cats, err := a.loadCategories(cfg.Household.Kind)
	if err != nil {
		return err
	}

	files, err := newUploader(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}

	var chooser categorize.Chooser
	if cfg.LLM.BaseURL != "" {
		chooser = categorize.NewGatewayClient(categorize.GatewayConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
	}
	categorizer := categorize.NewService(cats, cfg.Categorizer.Rules, chooser, cfg.Categorizer.Fallback, logger.Named("categorize"))

	var verifier billing.Verifier
	if cfg.PayPal.ClientID != "" {
		verifier = billing.NewPayPalClient(billing.PayPalConfig{
			BaseURL:      cfg.PayPal.BaseURL,
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			WebhookID:    cfg.PayPal.WebhookID,
		})
	} else {
		logger.Warn("PayPal credentials not set, webhooks will be rejected")
	}
	catalogue := billing.DefaultCatalogue()
	for paypalID, plan := range cfg.PayPal.Plans {
		catalogue.PayPalPlanIDs[paypalID] = plan
	}

	srv := api.New(api.Deps{
		DB:          st,
		Auth:        auth.NewService(st, tokens),
		Families:    st,
		Receipts:    st,
		Leads:       leads.NewService(st),
		LeadLookup:  st,
		Expenses:    expenses.NewService(st, cats, cfg.Duplicates.Options()).WithCategorizer(categorizer),
		Categories:  cats,
		Categorizer: categorizer,
		Payroll:     payroll.NewService(st, cfg.Payroll),
		Billing:     billing.NewService(st, verifier, catalogue, logger.Named("billing")),
		Files:       files,
		Importers:   importer.DefaultRegistry(),
		BudgetRule:  cfg.Budget,
		MaxPages:    cfg.Receipts.MaxPages,
		Origins:     cfg.Server.AllowedOrigins,
		Logger:      logger.Named("api"),
	})

	w := worker.New(st, files, ocr.NewMindeeClient(cfg.OCR.Endpoint, cfg.OCR.APIKey), categorizer,
		worker.WithInterval(cfg.Receipts.PollInterval),
		worker.WithPartialOptions(cfg.Receipts.PartialOptions()),
		worker.WithLogger(logger.Named("worker")),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newUploader(ctx context.Context, cfg config.StorageConfig) (storage.Uploader, error) {
	if cfg.Backend != "s3" {
		return storage.NewMemoryStore(), nil
	}
	s3, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to bucket: %w", err)
	}
	return s3, nil
}
