package app

import (
	"context"
	"testing"

	"nikosoko-backend/internal/config"
	"nikosoko-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 50051},
		JWT:    config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Admin:  config.AdminConfig{Phones: []string{"0700000001"}},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)

	res, err := a.Auth.Signup(ctx, &domain.Provider{Name: "Wanjiru", Phone: "0744000009"})
	require.NoError(t, err)

	inv, err := a.GatePass.CreateInvite(ctx, res.Provider.ID, "0755000001", "2026-10-20")
	require.NoError(t, err)
	assert.Len(t, inv.AccessCode, 6)
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Lock.Type = config.LockRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "redis")
}
