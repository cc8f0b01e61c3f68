package storage

import (
	"context"
	"fmt"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
)

// Init compares the stored version marker with CurrentVersion. On mismatch it
// resets the admin password, articles and teams to the built-in defaults,
// writes default settings and AI settings only where none are stored, and
// then records the new marker. Init reports whether a reset happened.
func (s *Service) Init(ctx context.Context) (bool, error) {
	var stored string
	found, err := s.readJSON(ctx, KeyVersion, &stored)
	if err != nil {
		return false, fmt.Errorf("read version: %w", err)
	}
	if found && stored == CurrentVersion {
		return false, nil
	}

	if s.resetHook != nil {
		entries, err := s.Snapshot(ctx)
		if err != nil {
			return false, fmt.Errorf("snapshot before reset: %w", err)
		}
		if len(entries) > 0 {
			if err := s.resetHook(ctx, stored, entries); err != nil {
				s.log.WithError(err).Warn("pre-reset snapshot failed")
			}
		}
	}

	if err := s.SetPassword(ctx, DefaultPassword); err != nil {
		return false, err
	}
	if err := s.writeJSON(ctx, KeyArticles, content.DefaultArticles(s.now())); err != nil {
		return false, err
	}
	if err := s.writeJSON(ctx, KeyTeams, content.DefaultTeams()); err != nil {
		return false, err
	}
	if err := s.writeIfAbsent(ctx, KeySettings, settings.DefaultAppSettings()); err != nil {
		return false, err
	}
	if err := s.writeIfAbsent(ctx, KeyAISettings, settings.DefaultAIControlSettings()); err != nil {
		return false, err
	}
	if err := s.writeJSON(ctx, KeyVersion, CurrentVersion); err != nil {
		return false, err
	}

	s.log.WithField("from", stored).WithField("to", CurrentVersion).Warn("knowledge base reset to defaults")
	return true, nil
}

func (s *Service) writeIfAbsent(ctx context.Context, key string, value any) error {
	ok, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.writeJSON(ctx, key, value)
}
