package di

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"antidelete-bot/internal/config"
	"antidelete-bot/internal/database"
	"antidelete-bot/internal/policy"
	"antidelete-bot/internal/recovery"
)

func testConfig(store string) *config.Config {
	return &config.Config{
		BotToken:           "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		PolicyStore:        store,
		DefaultLanguage:    "en",
		CacheExpiration:    30 * time.Minute,
		CacheSweepInterval: time.Minute,
		SuppressionWindow:  5 * time.Minute,
		PolicyCacheTTL:     time.Second,
		SendRatePerSecond:  20,
	}
}

func TestBuildContainer_ResolvesCoreGraph(t *testing.T) {
	container, err := BuildContainer(testConfig(config.StoreMemory), zap.NewNop())
	require.NoError(t, err)

	err = container.Invoke(func(store database.Store, engine *policy.Engine, registry *recovery.Registry) {
		assert.IsType(t, &database.MemoryStore{}, store)
		assert.NotNil(t, engine)
		assert.Equal(t, 0, registry.Len())
	})
	assert.NoError(t, err)
}

func TestNewStore(t *testing.T) {
	cfg := testConfig(config.StoreSQLite)
	cfg.SQLitePath = t.TempDir() + "/policies.db"

	store, err := NewStore(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &database.SQLStore{}, store)
	require.NoError(t, store.Close(t.Context()))

	_, err = NewStore(testConfig("redis"), zap.NewNop())
	assert.Error(t, err)
}
