package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/board"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("CHESS_CONFIG_FILE", "")
	t.Setenv("CHESS_OWNER_ID", "owner")
	t.Setenv("CHESS_MOVE_GRACE", "3")
	t.Setenv("CHESS_EPOCH_LENGTH", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "owner", cfg.OwnerID)
	assert.Equal(t, uint64(3), cfg.MoveGrace)
	assert.Equal(t, 30*time.Second, cfg.EpochLength)
	assert.True(t, cfg.StartPaused)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	rule, err := cfg.PromotionRule()
	require.NoError(t, err)
	assert.Equal(t, board.PromoteLegacy, rule)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
owner_id: file-owner
http_addr: ":9000"
promotion_rule: own-color
stake_amount: 25
stake_token: CHESS
`), 0o644))
	t.Setenv("CHESS_CONFIG_FILE", path)
	t.Setenv("CHESS_HTTP_ADDR", ":9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-owner", cfg.OwnerID)
	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.Equal(t, uint64(25), cfg.StakeAmount)
	rule, _ := cfg.PromotionRule()
	assert.Equal(t, board.PromoteOwnColor, rule)
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHESS_OWNER_ID")

	cfg.OwnerID = "o"
	cfg.MoveGrace = 0
	cfg.Promotion = "rook"
	cfg.StakeAmount = 5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHESS_MOVE_GRACE")
	assert.Contains(t, err.Error(), "promotion")
	assert.Contains(t, err.Error(), "CHESS_STAKE_TOKEN")
}

func TestValidateStakeCap(t *testing.T) {
	cfg := defaults()
	cfg.OwnerID = "o"
	cfg.StakeToken = "CHESS"

	cfg.StakeAmount = math.MaxUint64 / 2
	require.NoError(t, cfg.Validate())

	cfg.StakeAmount = math.MaxUint64/2 + 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHESS_STAKE_AMOUNT")
}
