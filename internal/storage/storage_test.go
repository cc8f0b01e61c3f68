package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
	"sopdesk/api/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.MemoryStore, *clock) {
	t.Helper()
	backend := store.NewMemoryStore()
	clk := &clock{now: time.UnixMilli(1700000000000)}
	logger, _ := logtest.NewNullLogger()
	base := []Option{WithBcryptCost(bcrypt.MinCost), WithClock(clk.Now), WithLogger(logger)}
	return New(backend, append(base, opts...)...), backend, clk
}

func TestInitSeedsEmptyStore(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reset, err := svc.Init(ctx)
	require.NoError(t, err)
	assert.True(t, reset)

	teams, err := svc.Teams(ctx)
	require.NoError(t, err)
	assert.Equal(t, content.DefaultTeams(), teams)

	articles, err := svc.Articles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "a1", articles[0].ID)

	ok, err := svc.CheckPassword(ctx, DefaultPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	app, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultAppSettings(), app)
}

func TestInitIsIdempotentForCurrentVersion(t *testing.T) {
	svc, backend, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Init(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SaveArticles(ctx, []content.Article{{ID: "mine", Title: "Authored"}}))
	require.NoError(t, svc.SetPassword(ctx, "s3cret"))
	before, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	reset, err := svc.Init(ctx)
	require.NoError(t, err)
	assert.False(t, reset)

	after, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.NotContains(t, keys, KeyAIStats, "init never writes stats")
}

func TestInitResetsOnStaleVersion(t *testing.T) {
	var hooked map[string][]byte
	var hookedVersion string
	hook := func(_ context.Context, from string, entries map[string][]byte) error {
		hookedVersion = from
		hooked = entries
		return nil
	}
	svc, backend, _ := newTestService(t, WithResetHook(hook))
	ctx := context.Background()

	customSettings := []byte(`{"appName":"Ops"}`)
	require.NoError(t, backend.Set(ctx, KeyVersion, []byte(`"kb_version_1_2"`)))
	require.NoError(t, backend.Set(ctx, KeySettings, customSettings))
	require.NoError(t, svc.SaveArticles(ctx, []content.Article{{ID: "mine"}}))
	require.NoError(t, svc.SaveTeams(ctx, []content.Team{{ID: "tx"}}))
	require.NoError(t, svc.SetPassword(ctx, "s3cret"))

	reset, err := svc.Init(ctx)
	require.NoError(t, err)
	assert.True(t, reset)

	assert.Equal(t, "kb_version_1_2", hookedVersion)
	assert.Contains(t, string(hooked[KeyArticles]), `"mine"`)

	articles, err := svc.Articles(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", articles[0].ID)

	teams, err := svc.Teams(ctx)
	require.NoError(t, err)
	assert.Equal(t, content.DefaultTeams(), teams)

	ok, err := svc.CheckPassword(ctx, "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.CheckPassword(ctx, DefaultPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	raw, _, err := backend.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.Equal(t, customSettings, raw, "existing settings survive a reset")

	ai, err := svc.AISettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultAIControlSettings(), ai)
}

func TestArticlesRoundTripIsByteStable(t *testing.T) {
	svc, backend, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Init(ctx)
	require.NoError(t, err)

	articles, err := svc.Articles(ctx)
	require.NoError(t, err)
	articles[0].ProcessSteps[0].ContentBlocks = content.Blocks{
		content.CalloutBlock{ID: "c1", CalloutType: content.CalloutWarning, Content: "Check seal"},
	}
	require.NoError(t, svc.SaveArticles(ctx, articles))
	first, _, err := backend.Get(ctx, KeyArticles)
	require.NoError(t, err)

	again, err := svc.Articles(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.SaveArticles(ctx, again))
	second, _, err := backend.Get(ctx, KeyArticles)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}

func TestMalformedDocumentsFallBackToDefaults(t *testing.T) {
	backend := store.NewMemoryStore()
	logger, hook := logtest.NewNullLogger()
	svc := New(backend, WithLogger(logger), WithBcryptCost(bcrypt.MinCost))
	ctx := context.Background()

	for _, key := range []string{KeyTeams, KeyArticles, KeySettings, KeyAISettings, KeyAIStats, KeyTheme} {
		require.NoError(t, backend.Set(ctx, key, []byte(`{not json`)))
	}

	teams, err := svc.Teams(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)

	articles, err := svc.Articles(ctx)
	require.NoError(t, err)
	assert.Empty(t, articles)

	app, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultAppSettings(), app)

	ai, err := svc.AISettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultAIControlSettings(), ai)

	stats, err := svc.AIStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.AIStats{}, stats)

	theme, err := svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ThemeLight, theme)

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestUndecodableArticleSurvivesWrites(t *testing.T) {
	svc, backend, _ := newTestService(t)
	ctx := context.Background()

	stored := `[
		{"id":"good","title":"Good","status":"published","teamIds":["t1"]},
		{"id":"bad","title":"Bad","status":"published","processSteps":[{"title":"s","contentBlocks":[{"id":"b","type":"table"}]}]}
	]`
	require.NoError(t, backend.Set(ctx, KeyArticles, []byte(stored)))

	articles, err := svc.Articles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "good", articles[0].ID)

	added := content.Article{ID: "new", Title: "New", Status: content.StatusDraft}
	require.NoError(t, svc.SaveArticles(ctx, content.Upsert(articles, added)))

	raw, _, err := backend.Get(ctx, KeyArticles)
	require.NoError(t, err)
	var ids []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &ids))
	require.Len(t, ids, 3)
	assert.Equal(t, "good", ids[0].ID)
	assert.Equal(t, "new", ids[1].ID)
	assert.Equal(t, "bad", ids[2].ID)
	assert.Contains(t, string(raw), `"type":"table"`)

	// Saving an article with the undecodable record's id replaces it.
	articles, err = svc.Articles(ctx)
	require.NoError(t, err)
	fixed := content.Article{ID: "bad", Title: "Fixed", Status: content.StatusPublished}
	require.NoError(t, svc.SaveArticles(ctx, content.Upsert(articles, fixed)))
	raw, _, err = backend.Get(ctx, KeyArticles)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"type":"table"`)
}

func TestMalformedCollectionRefusesWrites(t *testing.T) {
	svc, backend, _ := newTestService(t)
	ctx := context.Background()

	original := []byte(`{"not":"an array"}`)
	require.NoError(t, backend.Set(ctx, KeyArticles, original))
	require.NoError(t, backend.Set(ctx, KeyTeams, original))

	articles, err := svc.Articles(ctx)
	require.NoError(t, err)
	assert.Empty(t, articles)

	err = svc.SaveArticles(ctx, []content.Article{{ID: "x", Title: "X", Status: content.StatusDraft}})
	require.ErrorIs(t, err, ErrMalformed)
	err = svc.SaveTeams(ctx, []content.Team{{ID: "t9", Name: "Nine"}})
	require.ErrorIs(t, err, ErrMalformed)

	raw, _, err := backend.Get(ctx, KeyArticles)
	require.NoError(t, err)
	assert.Equal(t, original, raw)
	raw, _, err = backend.Get(ctx, KeyTeams)
	require.NoError(t, err)
	assert.Equal(t, original, raw)
}

func TestSettingsLayerOverDefaults(t *testing.T) {
	svc, backend, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, KeyAISettings, []byte(`{"tone":"direct","scope":{"useAttachments":true}}`)))

	ai, err := svc.AISettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ToneDirect, ai.Tone)
	assert.True(t, ai.Scope.UseAttachments)
	assert.True(t, ai.Scope.UseFullContent)
	assert.True(t, ai.Enabled)
}

func TestPasswordCheck(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ok, err := svc.CheckPassword(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok, "no stored hash never matches")

	require.NoError(t, svc.SetPassword(ctx, "p@ss"))
	ok, err = svc.CheckPassword(ctx, "p@ss")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.CheckPassword(ctx, "p@ssx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementAIUsageIsSerialised(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementAIUsage(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := svc.AIStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Count)
	require.NotNil(t, stats.LastUsed)
	assert.Equal(t, clk.Now().UnixMilli(), *stats.LastUsed)
}

func TestResetTokenLifecycle(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	token, err := svc.CreateResetToken(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, token)

	ok, err := svc.VerifyResetToken(ctx, " "+toLower(token)+" ")
	require.NoError(t, err)
	assert.True(t, ok, "verification ignores case")

	ok, err = svc.VerifyResetToken(ctx, "WRONG1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.ConsumeResetToken(ctx))
	ok, err = svc.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "consumed tokens no longer verify")

	token, err = svc.CreateResetToken(ctx)
	require.NoError(t, err)
	clk.Advance(11 * time.Minute)
	ok, err = svc.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "expired tokens no longer verify")

	swept, err := svc.SweepExpiredResetToken(ctx)
	require.NoError(t, err)
	assert.True(t, swept)
	swept, err = svc.SweepExpiredResetToken(ctx)
	require.NoError(t, err)
	assert.False(t, swept)
}

func TestRandomCodeDiscardsBiasedBytes(t *testing.T) {
	// 252..255 would fold onto A..D.
	src := bytes.NewReader([]byte{252, 253, 254, 255, 0, 1, 35, 36, 251, 71, 200, 100, 7, 8})
	code, err := randomCode(src, 6)
	require.NoError(t, err)
	assert.Equal(t, "AB9A99", code)

	_, err = randomCode(bytes.NewReader([]byte{255, 255}), 6)
	assert.Error(t, err)
}

func TestRecoveryEmailAndTheme(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	email, err := svc.RecoveryEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, svc.SetRecoveryEmail(ctx, "  ops@example.com "))
	email, err = svc.RecoveryEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", email)

	theme, err := svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ThemeLight, theme)
	require.NoError(t, svc.SaveTheme(ctx, settings.ThemeDark))
	theme, err = svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ThemeDark, theme)
}

func toLower(s string) string {
	return string(bytes.ToLower([]byte(s)))
}
