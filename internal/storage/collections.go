package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
)

// Teams skips records that fail to decode. A document that is not an array
// at all reads as empty.
func (s *Service) Teams(ctx context.Context) ([]content.Team, error) {
	teams, _, err := readRecords[content.Team](ctx, s, KeyTeams)
	if errors.Is(err, ErrMalformed) {
		s.log.WithError(err).Warn("stored teams are malformed, using an empty list")
		return []content.Team{}, nil
	}
	return teams, err
}

// SaveTeams keeps stored records it could not decode, unless a team with
// the same id replaces them. It refuses to overwrite a malformed document.
func (s *Service) SaveTeams(ctx context.Context, teams []content.Team) error {
	return writeRecords(ctx, s, KeyTeams, teams, func(t content.Team) string { return t.ID })
}

// Articles skips records that fail to decode, such as a step holding a block
// type this build does not know. A document that is not an array at all
// reads as empty.
func (s *Service) Articles(ctx context.Context) ([]content.Article, error) {
	articles, _, err := readRecords[content.Article](ctx, s, KeyArticles)
	if errors.Is(err, ErrMalformed) {
		s.log.WithError(err).Warn("stored articles are malformed, using an empty list")
		return []content.Article{}, nil
	}
	return articles, err
}

// SaveArticles keeps stored records it could not decode, unless an article
// with the same id replaces them. It refuses to overwrite a malformed
// document.
func (s *Service) SaveArticles(ctx context.Context, articles []content.Article) error {
	return writeRecords(ctx, s, KeyArticles, articles, func(a content.Article) string { return a.ID })
}

type recordID struct {
	ID string `json:"id"`
}

// readRecords decodes the array at key one record at a time. Records that
// fail to decode are logged and returned raw in skipped.
func readRecords[T any](ctx context.Context, s *Service, key string) (records []T, skipped []json.RawMessage, err error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	records = []T{}
	if !ok {
		return records, nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return records, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	for i, item := range items {
		var record T
		if err := json.Unmarshal(item, &record); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"key": key, "index": i}).Warn("stored record is malformed, skipping")
			skipped = append(skipped, item)
			continue
		}
		records = append(records, record)
	}
	return records, skipped, nil
}

func writeRecords[T any](ctx context.Context, s *Service, key string, records []T, idOf func(T) string) error {
	_, skipped, err := readRecords[T](ctx, s, key)
	if err != nil {
		return err
	}
	out := make([]json.RawMessage, 0, len(records)+len(skipped))
	replaced := make(map[string]bool, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		out = append(out, raw)
		replaced[idOf(record)] = true
	}
	for _, raw := range skipped {
		var id recordID
		_ = json.Unmarshal(raw, &id)
		if id.ID != "" && replaced[id.ID] {
			continue
		}
		out = append(out, raw)
	}
	return s.writeJSON(ctx, key, out)
}

// Article looks a single article up by id.
func (s *Service) Article(ctx context.Context, id string) (content.Article, error) {
	articles, err := s.Articles(ctx)
	if err != nil {
		return content.Article{}, err
	}
	article, ok := content.FindArticle(articles, id)
	if !ok {
		return content.Article{}, ErrNotFound
	}
	return article, nil
}

// Settings layers the stored document over the defaults field by field.
func (s *Service) Settings(ctx context.Context) (settings.AppSettings, error) {
	raw, ok, err := s.backend.Get(ctx, KeySettings)
	if err != nil {
		return settings.AppSettings{}, err
	}
	if !ok {
		return settings.DefaultAppSettings(), nil
	}
	value, err := settings.DecodeAppSettings(raw)
	if err != nil {
		s.warnMalformed(KeySettings, err)
	}
	return value, nil
}

func (s *Service) SaveSettings(ctx context.Context, value settings.AppSettings) error {
	return s.writeJSON(ctx, KeySettings, value)
}

func (s *Service) AISettings(ctx context.Context) (settings.AIControlSettings, error) {
	raw, ok, err := s.backend.Get(ctx, KeyAISettings)
	if err != nil {
		return settings.AIControlSettings{}, err
	}
	if !ok {
		return settings.DefaultAIControlSettings(), nil
	}
	value, err := settings.DecodeAIControlSettings(raw)
	if err != nil {
		s.warnMalformed(KeyAISettings, err)
	}
	return value, nil
}

func (s *Service) SaveAISettings(ctx context.Context, value settings.AIControlSettings) error {
	if value.AllowedTeamIDs == nil {
		value.AllowedTeamIDs = []string{}
	}
	return s.writeJSON(ctx, KeyAISettings, value)
}

func (s *Service) AIStats(ctx context.Context) (settings.AIStats, error) {
	var stats settings.AIStats
	found, err := s.readJSON(ctx, KeyAIStats, &stats)
	if err != nil {
		return settings.AIStats{}, err
	}
	if !found {
		return settings.AIStats{}, nil
	}
	return stats, nil
}

// IncrementAIUsage adds one to the usage counter and stamps lastUsed.
func (s *Service) IncrementAIUsage(ctx context.Context) (settings.AIStats, error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats, err := s.AIStats(ctx)
	if err != nil {
		return settings.AIStats{}, err
	}
	stats.Count++
	now := s.now().UnixMilli()
	stats.LastUsed = &now
	if err := s.writeJSON(ctx, KeyAIStats, stats); err != nil {
		return settings.AIStats{}, err
	}
	return stats, nil
}

// Theme defaults to light when unset or unrecognised.
func (s *Service) Theme(ctx context.Context) (settings.Theme, error) {
	var theme settings.Theme
	found, err := s.readJSON(ctx, KeyTheme, &theme)
	if err != nil {
		return "", err
	}
	if !found || !theme.Valid() {
		return settings.ThemeLight, nil
	}
	return theme, nil
}

func (s *Service) SaveTheme(ctx context.Context, theme settings.Theme) error {
	return s.writeJSON(ctx, KeyTheme, theme)
}
