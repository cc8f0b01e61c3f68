package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sopdesk/api/internal/archive"
	"sopdesk/api/internal/assistant"
	"sopdesk/api/internal/config"
	"sopdesk/api/internal/storage"
	"sopdesk/api/internal/store"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "sopdesk",
	Short:         "Internal SOP knowledge base",
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: `sopdesk serve
sopdesk init
sopdesk passwd <new-password>
sopdesk snapshot -m "before quarterly review"
sopdesk mcp`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, initCmd, passwdCmd, snapshotCmd, mcpCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// knowledgeBase is the store plus the archive every command shares.
type knowledgeBase struct {
	backend store.Backend
	kb      *storage.Service
	archive *archive.Service
}

func (k *knowledgeBase) Close() error {
	return k.backend.Close()
}

// openKnowledgeBase connects the configured backend and runs the version
// check. A reset first archives whatever was stored.
func openKnowledgeBase(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*knowledgeBase, error) {
	backend, err := store.OpenBackend(ctx, cfg.StoreURL, cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	archiver := archive.New(cfg.ArchiveDir, storage.KeyAdminHash, storage.KeyResetToken)
	kb := storage.New(backend,
		storage.WithBcryptCost(cfg.BcryptCost),
		storage.WithLogger(log),
		storage.WithResetHook(func(_ context.Context, fromVersion string, entries map[string][]byte) error {
			if fromVersion == "" {
				fromVersion = "unversioned store"
			}
			commit, _, err := archiver.Snapshot(entries, "pre-reset snapshot from "+fromVersion)
			if err == nil {
				log.WithField("commit", commit.Hash).Info("store archived before reset")
			}
			return err
		}),
	)

	reset, err := kb.Init(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	if reset {
		log.WithField("version", storage.CurrentVersion).Info("store initialised with default content")
	}
	return &knowledgeBase{backend: backend, kb: kb, archive: archiver}, nil
}

// newAssistant builds the assistant with a Gemini generator when a key is
// configured. Without one every answer is the not-configured reply.
func newAssistant(ctx context.Context, cfg config.Config, kb *storage.Service, log logrus.FieldLogger) *assistant.Assistant {
	var generator assistant.Generator
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := assistant.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.WithError(err).Warn("gemini client unavailable, assistant disabled")
		} else {
			generator = gemini
		}
	}
	return assistant.New(kb, generator, log)
}
