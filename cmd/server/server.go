package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luminosity-leds/luminosity/internal/accounts"
	"github.com/luminosity-leds/luminosity/internal/api"
	"github.com/luminosity-leds/luminosity/internal/auth"
	"github.com/luminosity-leds/luminosity/internal/certs"
	"github.com/luminosity-leds/luminosity/internal/color"
	"github.com/luminosity-leds/luminosity/internal/config"
	"github.com/luminosity-leds/luminosity/internal/devices"
	"github.com/luminosity-leds/luminosity/internal/lighting"
	"github.com/luminosity-leds/luminosity/internal/mailer"
	"github.com/luminosity-leds/luminosity/internal/store"
)

const certWarnWindow = 30 * 24 * time.Hour

// run serves until ctx is cancelled, then shuts down gracefully. The bound
// address is sent on ready when it is not nil.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, ready chan<- string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	var revoker auth.Revoker = db
	if cfg.Revocation.Backend == "redis" {
		rr, err := auth.NewRedisRevoker(cfg.Revocation.RedisURL)
		if err != nil {
			return err
		}
		defer rr.Close()
		revoker = rr
	}

	issuer, err := auth.NewIssuer(cfg.Auth.TokenSecret, cfg.GetTokenTTL())
	if err != nil {
		return err
	}
	mail, err := mailer.New(cfg.Mail, logger)
	if err != nil {
		return err
	}

	sim := lighting.NewSimulator(color.Default)
	devSvc := devices.NewService(db, color.Default, sim, logger)
	accSvc := accounts.NewService(db, issuer, revoker, mail, devSvc, logger, accounts.Options{
		BcryptCost:     cfg.Auth.BcryptCost,
		VerifyTokenTTL: cfg.GetVerifyTokenTTL(),
		BaseURL:        cfg.Server.BaseURL,
	})
	router := api.NewRouter(api.Deps{
		Accounts:     accSvc,
		Devices:      devSvc,
		Palette:      color.Default,
		Issuer:       issuer,
		Revoker:      revoker,
		SecureCookie: cfg.Auth.SecureCookie,
		Logger:       logger,
	})

	srv := &http.Server{
		Handler:           router,
		ReadTimeout:       cfg.GetReadTimeout(),
		ReadHeaderTimeout: cfg.GetReadTimeout(),
		WriteTimeout:      cfg.GetWriteTimeout(),
		ErrorLog:          zap.NewStdLog(logger),
	}
	if cfg.TLSEnabled() {
		cm := certs.NewCertManager(cfg.Server.TLSCert, cfg.Server.TLSKey)
		tlsCfg, leaf, err := cm.TLSConfig()
		if err != nil {
			return err
		}
		if cm.ExpiresWithin(leaf, certWarnWindow) {
			logger.Warn("TLS certificate expires soon", zap.Time("not_after", leaf.NotAfter))
		}
		srv.TLSConfig = tlsCfg
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	logger.Info("Server running",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", srv.TLSConfig != nil),
		zap.String("revocation", cfg.Revocation.Backend),
		zap.String("mail", cfg.Mail.Driver))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if srv.TLSConfig != nil {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Revocation.Backend == "bolt" {
		g.Go(func() error {
			purgeRevoked(gctx, db, cfg.GetPurgeInterval(), logger)
			return nil
		})
	}
	return g.Wait()
}

// purgeRevoked drops expired revocations every interval until ctx ends.
func purgeRevoked(ctx context.Context, db *store.DB, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := db.PurgeRevoked(now)
			if err != nil {
				logger.Warn("purge revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged revoked tokens", zap.Int("count", n))
			}
		}
	}
}
