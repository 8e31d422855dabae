package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DEBUG", "HEALTH_SERVER_PORT", "PEER_DISCOVERY", "STATIC_PEERS", "KUBECONFIG", "KUBE_CONTEXT", "NAMESPACE", "POD_NAMESPACE"} {
		t.Setenv(key, "")
	}
	t.Setenv("RUNTIME", "vm")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "0.0.0.0:2440", cfg.ListenAddr())
	assert.False(t, cfg.HealthEnabled())
	assert.Equal(t, DiscoveryNone, cfg.PeerDiscovery)
	assert.Equal(t, RuntimeVM, cfg.Runtime)
}

func TestLoadPortFlag(t *testing.T) {
	clearEnv(t)

	for _, cmdline := range [][]string{{"-p", "9000"}, {"--port", "9000"}, {"--port=9000"}} {
		cfg, err := Load(cmdline)
		require.NoError(t, err, cmdline)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
	}
}

func TestLoadRejectsBadArguments(t *testing.T) {
	clearEnv(t)

	cases := map[string][]string{
		"not a number": {"-p", "abc"},
		"zero":         {"-p", "0"},
		"too large":    {"-p", "70000"},
		"unknown flag": {"--verbose"},
	}
	for name, cmdline := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(cmdline)
			assert.Error(t, err)
		})
	}
}

func TestLoadHelp(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"--help"})
	assert.True(t, errors.Is(err, ErrHelp))

	var buf bytes.Buffer
	WriteHelp(&buf)
	assert.Contains(t, buf.String(), "--port")
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("HEALTH_SERVER_PORT", "8080")
	t.Setenv("STATIC_PEERS", "10.0.0.2=attacker")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.True(t, cfg.HealthEnabled())
	assert.Equal(t, "8080", cfg.HealthServerPort)
	assert.Equal(t, DiscoveryStatic, cfg.PeerDiscovery)
	assert.Equal(t, "10.0.0.2=attacker", cfg.StaticPeers)
}

func TestLoadDiscoveryValidation(t *testing.T) {
	clearEnv(t)

	t.Setenv("PEER_DISCOVERY", "static")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "STATIC_PEERS")

	t.Setenv("PEER_DISCOVERY", "consul")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "unsupported PEER_DISCOVERY")

	t.Setenv("PEER_DISCOVERY", "K8S")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DiscoveryKubernetes, cfg.PeerDiscovery)
}

func TestLoadHealthPortValidation(t *testing.T) {
	clearEnv(t)

	t.Setenv("HEALTH_SERVER_PORT", "nope")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "HEALTH_SERVER_PORT")

	t.Setenv("HEALTH_SERVER_PORT", "2440")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "must differ")
}

func TestLoadRejectsMalformedStaticPeers(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATIC_PEERS", "10.0.0.2=attacker,not-an-ip=victim")

	_, err := Load(nil)
	assert.ErrorContains(t, err, "invalid STATIC_PEERS")
}

func TestLoadNamespace(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Namespace)

	t.Setenv("POD_NAMESPACE", "lab")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Namespace)

	t.Setenv("NAMESPACE", "attack")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "attack", cfg.Namespace)
}

func TestLoadDebugAcceptsBoolForms(t *testing.T) {
	clearEnv(t)

	for _, v := range []string{"1", "TRUE", "true", "t"} {
		t.Setenv("DEBUG", v)
		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.True(t, cfg.Debug, v)
	}
}
