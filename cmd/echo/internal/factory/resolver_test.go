package factory

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/config"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/discovery/memory"
)

// unreachableKubeconfig points at a port nothing listens on.
const unreachableKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: lab
  cluster:
    server: https://127.0.0.1:1
    insecure-skip-tls-verify: true
contexts:
- name: lab
  context:
    cluster: lab
    user: lab
current-context: lab
users:
- name: lab
  user:
    token: test
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(unreachableKubeconfig), 0600))
	return path
}

func TestCreateNone(t *testing.T) {
	r, err := NewResolverFactory(&config.Config{PeerDiscovery: config.DiscoveryNone}).Create(context.Background())
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCreateStatic(t *testing.T) {
	cfg := &config.Config{PeerDiscovery: config.DiscoveryStatic, StaticPeers: "10.0.0.2=attacker"}

	r, err := NewResolverFactory(cfg).Create(context.Background())
	require.NoError(t, err)
	require.IsType(t, &memory.Resolver{}, r)

	name, err := r.Resolve(context.Background(), &net.TCPAddr{IP: net.ParseIP("10.0.0.2"), Port: 1})
	require.NoError(t, err)
	assert.Equal(t, "attacker", name)
}

func TestCreateStaticInvalidMapping(t *testing.T) {
	cfg := &config.Config{PeerDiscovery: config.DiscoveryStatic, StaticPeers: "garbage"}

	_, err := NewResolverFactory(cfg).Create(context.Background())
	assert.ErrorContains(t, err, "failed to create static resolver")
}

func TestCreateKubernetesWithoutCluster(t *testing.T) {
	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	t.Setenv("KUBERNETES_SERVICE_PORT", "")
	cfg := &config.Config{
		PeerDiscovery:  config.DiscoveryKubernetes,
		Runtime:        config.RuntimeVM,
		KubeConfigPath: filepath.Join(t.TempDir(), "missing-kubeconfig"),
	}

	_, err := NewResolverFactory(cfg).Create(context.Background())
	assert.ErrorContains(t, err, "failed to build kubernetes config")
}

func TestCreateUnknownMode(t *testing.T) {
	_, err := NewResolverFactory(&config.Config{PeerDiscovery: "consul"}).Create(context.Background())
	assert.Error(t, err)
}

func TestCreateKubernetesDoesNotWaitForAPIServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		PeerDiscovery:  config.DiscoveryKubernetes,
		Runtime:        config.RuntimeVM,
		KubeConfigPath: writeKubeconfig(t),
	}

	type result struct {
		r   core.PeerResolver
		err error
	}
	done := make(chan result, 1)
	go func() {
		r, err := NewResolverFactory(cfg).Create(ctx)
		done <- result{r, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.NotNil(t, res.r)
		_, err := res.r.Resolve(ctx, &net.TCPAddr{IP: net.ParseIP("10.244.0.5"), Port: 1})
		assert.ErrorIs(t, err, core.ErrPeerNotFound)
	case <-time.After(5 * time.Second):
		t.Fatal("Create blocked on an unreachable API server")
	}
}
