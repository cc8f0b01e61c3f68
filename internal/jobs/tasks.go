package jobs

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/archive"
)

type Snapshotter interface {
	Snapshot(ctx context.Context) (map[string][]byte, error)
}

type Archiver interface {
	Snapshot(entries map[string][]byte, message string) (archive.Commit, bool, error)
}

// SnapshotTask commits the current store contents to the archive.
type SnapshotTask struct {
	source   Snapshotter
	archive  Archiver
	schedule string
	log      logrus.FieldLogger
}

func NewSnapshotTask(schedule string, source Snapshotter, archiver Archiver, log logrus.FieldLogger) *SnapshotTask {
	return &SnapshotTask{source: source, archive: archiver, schedule: schedule, log: log}
}

func (s *SnapshotTask) ID() string       { return "archive_snapshot" }
func (s *SnapshotTask) Schedule() string { return s.schedule }

func (s *SnapshotTask) Run(ctx context.Context) error {
	entries, err := s.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}
	commit, changed, err := s.archive.Snapshot(entries, "scheduled snapshot")
	if err != nil {
		return err
	}
	if changed {
		s.log.WithField("commit", commit.Hash).Info("store archived")
	}
	return nil
}

type ResetTokenSweeper interface {
	SweepExpiredResetToken(ctx context.Context) (bool, error)
}

// SweepTask drops an expired password reset code.
type SweepTask struct {
	store    ResetTokenSweeper
	schedule string
	log      logrus.FieldLogger
}

func NewSweepTask(schedule string, store ResetTokenSweeper, log logrus.FieldLogger) *SweepTask {
	return &SweepTask{store: store, schedule: schedule, log: log}
}

func (s *SweepTask) ID() string       { return "reset_token_sweep" }
func (s *SweepTask) Schedule() string { return s.schedule }

func (s *SweepTask) Run(ctx context.Context) error {
	removed, err := s.store.SweepExpiredResetToken(ctx)
	if err != nil {
		return fmt.Errorf("sweep reset token: %w", err)
	}
	if removed {
		s.log.Info("expired reset code removed")
	}
	return nil
}
