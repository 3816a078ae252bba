package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ipo-report-go/internal/config"
	"ipo-report-go/internal/logger"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "app.db")
	cfg.AI.UseMock = true
	cfg.PDF.Enabled = false
	cfg.IndexPath = ""
	return cfg
}

func TestNewWiresCollaborators(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.Discard(), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Processor)
	assert.Nil(t, a.chrome)
	assert.Empty(t, a.Index)
}

func TestNewWithoutStoreOrKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.UseMock = false
	cfg.AI.APIKey = ""
	a, err := New(context.Background(), cfg, logger.Discard(), Options{SkipStore: true})
	require.NoError(t, err)
	assert.Nil(t, a.Store)
	assert.Nil(t, a.interpreter(context.Background()))
	assert.NoError(t, a.Close())
}

func TestRunRetentionStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testConfig(t)
	cfg.Storage.RetentionDays = 30
	a, err := New(context.Background(), cfg, logger.Discard(), Options{})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunRetention(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("retention loop did not stop")
	}
}
