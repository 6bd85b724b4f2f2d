package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_New(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := Config{URL: "redis://" + mr.Addr() + "/0", ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}
	require.True(t, cfg.Enabled())
	client, err := cfg.New()
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, mr.Addr(), client.Options().Addr)
}

func TestConfig_NewErrors(t *testing.T) {
	_, err := (&Config{}).New()
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = (&Config{URL: "not-a-url"}).New()
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = (&Config{URL: "redis://" + addr, DialTimeout: 1}).New()
	assert.Error(t, err)
}
