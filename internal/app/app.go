package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sheet-broadcast/internal/api"
	"sheet-broadcast/internal/auth"
	"sheet-broadcast/internal/broadcast"
	"sheet-broadcast/internal/config"
	"sheet-broadcast/internal/database"
	"sheet-broadcast/internal/history"
	"sheet-broadcast/internal/session"
	"sheet-broadcast/internal/sheets"
	"sheet-broadcast/internal/webhook"
	"sheet-broadcast/internal/ws"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg *config.Config
}

func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Run wires the collaborators and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.AppPassword == "" {
		return errors.New("APP_PASSWORD must be set")
	}
	if a.cfg.GoogleSheetID == "" {
		return errors.New("GOOGLE_SHEET_ID must be set")
	}

	message, err := broadcast.ParseTemplate(a.cfg.MessageTemplate)
	if err != nil {
		return err
	}

	google, err := sheets.NewAuthorizer(a.cfg.GoogleCredentialsFile, a.cfg.GoogleTokenFile, a.cfg.OAuthRedirectURL)
	if err != nil {
		return err
	}

	db, err := database.Open(a.cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	runs := history.NewRepository(db)

	hub := ws.NewHub()
	router := api.NewRouter(api.Deps{
		Config:    a.cfg,
		Gate:      auth.NewGate(a.cfg.AppPassword),
		Sessions:  session.NewStore(),
		Google:    google,
		Source:    sheets.NewStore(google, a.cfg.GoogleSheetID, a.cfg.SheetRange, a.cfg.SheetVerifyRows),
		NewSender: api.NewSenderFactory(),
		Message:   message,
		Runs:      runs,
		Progress:  hub,
		Webhook:   webhook.NewHandler(a.cfg.PublicURL, runs, hub),
	})

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		return hub.Run(ctx)
	})

	erg.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("sheet_range", a.cfg.SheetRange).Msg("starting http server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}
