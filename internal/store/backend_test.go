package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, backend.Ping(ctx))

	_, ok, err := backend.Get(ctx, "kb_teams")
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`[{"id":"t1","name":"Service Champs"}]`)
	require.NoError(t, backend.Set(ctx, "kb_teams", payload))
	require.NoError(t, backend.Set(ctx, "kb_version", []byte(`"kb_version_1_3"`)))

	got, ok, err := backend.Get(ctx, "kb_teams")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	require.NoError(t, backend.Set(ctx, "kb_teams", []byte(`[]`)))
	got, _, err = backend.Get(ctx, "kb_teams")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got, "last write wins")

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kb_teams", "kb_version"}, keys)

	require.NoError(t, backend.Delete(ctx, "kb_teams"))
	_, ok, err = backend.Get(ctx, "kb_teams")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseBackend(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'z'

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kb", "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseBackend(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = s.Close() })

	exerciseBackend(t, s)

	require.NoError(t, s.Set(context.Background(), "kb_theme", []byte(`"dark"`)))
	assert.True(t, mr.Exists("kb:kb_theme"), "entries live under the kb: prefix")
}

func TestOpenBackendSchemes(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenBackend(ctx, "memory://", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	sqlitePath := filepath.Join(t.TempDir(), "kb.db")
	lite, err := OpenBackend(ctx, "sqlite://"+sqlitePath, "")
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, lite)
	require.NoError(t, lite.Close())

	mr := miniredis.RunT(t)
	rs, err := OpenBackend(ctx, "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, rs)
	require.NoError(t, rs.Close())

	_, err = OpenBackend(ctx, "etcd://localhost", "")
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("KB_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("KB_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS kv_entries; DROP TABLE IF EXISTS schema_migrations;`)
	require.NoError(t, err)
	require.NoError(t, ApplyMigrations(ctx, db, migrationsDir))
	require.NoError(t, ApplyMigrations(ctx, db, migrationsDir), "second run is a no-op")

	s := NewPostgresStore(db)
	t.Cleanup(func() { _ = s.Close() })
	exerciseBackend(t, s)
}
