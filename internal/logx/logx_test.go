package logx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/internal/logx"
)

func TestGet_LazilyInitializesWithoutExplicitInit(t *testing.T) {
	sugared := logx.Get()
	require.NotNil(t, sugared)
	assert.NotPanics(t, func() {
		sugared.Infow("smoke test", "key", "value")
	})
}

func TestInit_ThenGetReturnsUsableLogger(t *testing.T) {
	require.NoError(t, logx.Init())
	defer logx.Sync()

	sugared := logx.Get()
	require.NotNil(t, sugared)
	assert.NotPanics(t, func() {
		sugared.Warnw("smoke warning", "error", "boom")
	})
}
