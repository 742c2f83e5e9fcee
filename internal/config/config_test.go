package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcphook/proxy/internal/config"
)

func TestSetDefaults_FillsOnlyUnset(t *testing.T) {
	cfg := &config.Config{Target: config.Target{Command: "echo"}}
	cfg.SetDefaults()

	assert.Equal(t, config.TransportStdio, cfg.TransportType)
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, "mcphook", cfg.ServerInfo.Name)
	assert.Equal(t, "mcphook", cfg.ClientInfo.Name)
}

func TestSetDefaults_HTTPStreamGetsDefaultPort(t *testing.T) {
	cfg := &config.Config{TransportType: config.TransportHTTPStream, Target: config.Target{URL: "http://x"}}
	cfg.SetDefaults()
	assert.Equal(t, config.DefaultHTTPPort, cfg.Port)
}

func TestValidate_RequiresExactlyOneTarget(t *testing.T) {
	cfg := &config.Config{TransportType: config.TransportStdio}
	cfg.SetDefaults()
	err := cfg.Validate()
	require.Error(t, err)

	cfg.Target = config.Target{Command: "echo", URL: "http://x"}
	err = cfg.Validate()
	require.Error(t, err)

	cfg.Target = config.Target{Command: "echo"}
	require.NoError(t, cfg.Validate())
}

func TestValidate_HTTPStreamRequiresValidPort(t *testing.T) {
	cfg := &config.Config{
		TransportType: config.TransportHTTPStream,
		Target:        config.Target{URL: "http://x"},
		Port:          70000,
	}
	cfg.SetDefaults()
	require.Error(t, cfg.Validate())
}

func TestHookTimeout_DefaultsWhenUnset(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, config.DefaultHookTimeout, cfg.HookTimeout())
}

func TestSetDevDefaults_DoesNotTurnDevModeOn(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDevDefaults()
	assert.False(t, cfg.DevMode)
}

func TestSetDevDefaults_NoopWhenDevModeAlreadySet(t *testing.T) {
	cfg := &config.Config{DevMode: true}
	cfg.SetDevDefaults()
	assert.True(t, cfg.DevMode)
}
