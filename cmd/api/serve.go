package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sopdesk/api/internal/app"
	"sopdesk/api/internal/attachments"
	"sopdesk/api/internal/authpw"
	"sopdesk/api/internal/config"
	"sopdesk/api/internal/email"
	"sopdesk/api/internal/export"
	"sopdesk/api/internal/jobs"
	"sopdesk/api/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := newLogger(cfg)
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kb, err := openKnowledgeBase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer kb.Close()

		var revoker authpw.Revoker = session.NewMemoryStore()
		if strings.TrimSpace(cfg.RedisURL) != "" {
			log.Info("using Redis for revoked tokens")
			redisStore, err := session.NewRedisStore(cfg.RedisURL)
			if err != nil {
				return err
			}
			defer redisStore.Close()
			revoker = redisStore
		}

		mailer := email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		if !mailer.IsConfigured() {
			if cfg.ResetDevBypass {
				log.Warn("SMTP not configured, reset dev bypass returns codes in the API response")
			} else {
				log.Warn("SMTP not configured, password reset is unavailable")
			}
		}
		authSvc := authpw.NewService(kb.kb, mailer, revoker, authpw.Config{
			TokenSecret: cfg.JWTSecret,
			AccessTTL:   cfg.AccessTTL,
			DevBypass:   cfg.ResetDevBypass,
		}, log)

		deps := app.Dependencies{
			Store:     kb.kb,
			Auth:      authSvc,
			Assistant: newAssistant(ctx, cfg, kb.kb, log),
			Exporter:  export.NewService(kb.kb),
			Archive:   kb.archive,
			Log:       log,
		}
		if strings.TrimSpace(cfg.MinioEndpoint) != "" {
			attachmentStore, err := attachments.New(attachments.Config{
				Endpoint:  cfg.MinioEndpoint,
				AccessKey: cfg.MinioAccessKey,
				SecretKey: cfg.MinioSecretKey,
				Bucket:    cfg.MinioBucket,
				UseSSL:    cfg.MinioUseSSL,
				PublicURL: cfg.MinioPublicURL,
			})
			if err != nil {
				return err
			}
			if err := attachmentStore.EnsureBucket(ctx); err != nil {
				log.WithError(err).Warn("attachment bucket unavailable, uploads disabled")
			} else {
				deps.Attachments = attachmentStore
			}
		}

		executor := jobs.NewTaskExecutor(log,
			jobs.NewSnapshotTask(cfg.SnapshotSchedule, kb.kb, kb.archive, log),
			jobs.NewSweepTask(cfg.SweepSchedule, kb.kb, log),
		)
		if err := executor.Start(ctx); err != nil {
			return err
		}
		defer executor.Stop()

		httpServer := app.NewHTTPServer(app.New(deps), cfg.CORSOrigin)
		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpServer.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.WithField("addr", cfg.Addr).WithField("version", version).Info("sopdesk API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown error")
		}
		return nil
	},
}
