package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/marketscout/internal/model"
)

func TestSearchKey(t *testing.T) {
	week := model.SourceQuery{Tag: model.SourceGeneral, Query: `"Acme" launch`, Recency: model.RecencyWeek}
	month := model.SourceQuery{Tag: model.SourceHiring, Query: `"Acme" launch`, Recency: model.RecencyMonth}

	key := SearchKey(week)
	assert.True(t, strings.HasPrefix(key, "marketscout:v1:"))
	assert.Equal(t, key, SearchKey(week))
	assert.NotEqual(t, key, SearchKey(month))

	// The tag does not take part in the key; identical queries share a response
	retagged := week
	retagged.Tag = model.SourceReleases
	assert.Equal(t, key, SearchKey(retagged))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	_, found := c.Get(ctx, "missing")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	val, found := c.Get(ctx, "k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, found = c.Get(ctx, "k")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Clear(ctx))
	_, found = c.Get(ctx, "a")
	assert.False(t, found)
	_, found = c.Get(ctx, "b")
	assert.False(t, found)
}

func TestDiskCache_Expiry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "marketscout:v1:abc", []byte(`{"organic":[]}`), 0))

	val, found := c.Get(ctx, "marketscout:v1:abc")
	require.True(t, found)
	assert.JSONEq(t, `{"organic":[]}`, string(val))

	now = now.Add(2 * time.Minute)
	_, found = c.Get(ctx, "marketscout:v1:abc")
	assert.False(t, found)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "expired entry should be removed")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cache"), []byte("not json"), 0644))

	_, found := c.Get(ctx, "bad")
	assert.False(t, found)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	disk := NewDiskCache(dir, time.Minute)
	require.NoError(t, disk.Set(ctx, "k", []byte("from-disk"), 0))

	c := NewLayeredCache(time.Minute, dir, time.Minute)

	val, found := c.Get(ctx, "k")
	require.True(t, found)
	assert.Equal(t, []byte("from-disk"), val)

	memVal, found := c.memory.Get(ctx, "k")
	require.True(t, found, "disk hit should be promoted to memory")
	assert.Equal(t, []byte("from-disk"), memVal)

	require.NoError(t, c.Delete(ctx, "k"))
	_, found = c.Get(ctx, "k")
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     model.CacheConfig
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", cfg: model.CacheConfig{Enabled: false}, wantNil: true},
		{name: "memory", cfg: model.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Minute}},
		{name: "default backend", cfg: model.CacheConfig{Enabled: true, TTL: time.Minute}},
		{name: "layered", cfg: model.CacheConfig{Enabled: true, Backend: "layered", TTL: time.Minute, Dir: t.TempDir()}},
		{name: "unknown", cfg: model.CacheConfig{Enabled: true, Backend: "memcached"}, wantErr: true},
		{name: "unreachable redis", cfg: model.CacheConfig{Enabled: true, Backend: "redis", RedisAddr: "127.0.0.1:1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, c)
			} else {
				assert.NotNil(t, c)
			}
		})
	}
}
