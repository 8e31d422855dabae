package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/config"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/discovery/kubernetes"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/discovery/memory"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/logger"

	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ResolverFactory creates peer resolvers based on configuration
type ResolverFactory struct {
	cfg *config.Config
}

// NewResolverFactory creates a new resolver factory
func NewResolverFactory(cfg *config.Config) *ResolverFactory {
	return &ResolverFactory{cfg: cfg}
}

// Create creates a peer resolver based on configuration.
// It returns a nil resolver when peer discovery is disabled.
func (f *ResolverFactory) Create(ctx context.Context) (core.PeerResolver, error) {
	switch f.cfg.PeerDiscovery {
	case config.DiscoveryNone:
		logger.Debug("Peer discovery disabled")
		return nil, nil
	case config.DiscoveryStatic:
		return f.createStaticResolver()
	case config.DiscoveryKubernetes:
		return f.createKubernetesResolver(ctx)
	default:
		return nil, fmt.Errorf("unknown peer discovery mode: %s", f.cfg.PeerDiscovery)
	}
}

func (f *ResolverFactory) createStaticResolver() (core.PeerResolver, error) {
	logger.Info("Creating Static Peer Resolver", "peers", f.cfg.StaticPeers)

	resolver, err := memory.NewResolver(f.cfg.StaticPeers)
	if err != nil {
		return nil, fmt.Errorf("failed to create static resolver: %w", err)
	}

	return resolver, nil
}

func (f *ResolverFactory) createKubernetesResolver(ctx context.Context) (core.PeerResolver, error) {
	logger.Info("Creating Kubernetes Peer Resolver",
		"runtime", f.cfg.Runtime,
		"kubeconfig", f.cfg.KubeConfigPath,
		"context", f.cfg.KubeContext,
		"namespace", f.cfg.Namespace)

	restConfig, err := f.restConfig()
	if err != nil {
		return nil, err
	}

	clientset, err := k8s.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	resolver, err := kubernetes.NewK8sResolver(ctx, clientset, f.cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to start kubernetes resolver: %w", err)
	}
	logger.Info("Kubernetes resolver created, pod cache syncing in background")

	go func() {
		if resolver.WaitForSync(ctx) {
			logger.Info("Kubernetes pod cache synced")
		}
	}()
	return resolver, nil
}

func (f *ResolverFactory) restConfig() (*rest.Config, error) {
	kubeconfig := f.cfg.KubeConfigPath

	// Outside a cluster fall back to the usual kubeconfig location
	if f.cfg.Runtime != config.RuntimeKubernetes && kubeconfig == "" {
		if home := os.Getenv("HOME"); home != "" {
			kubeconfig = home + "/.kube/config"
		}
	}

	configOverrides := &clientcmd.ConfigOverrides{}
	if f.cfg.KubeContext != "" {
		configOverrides.CurrentContext = f.cfg.KubeContext
		logger.Info("Using specific Kubernetes context", "context", f.cfg.KubeContext)
	}

	var restConfig *rest.Config
	var err error

	// Try kubeconfig first (for VM/Container runtime or explicit config)
	if kubeconfig != "" {
		restConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
			configOverrides,
		).ClientConfig()

		if err != nil {
			logger.Warn("Failed to load kubeconfig, will try in-cluster config", "error", err)
		}
	}

	// Fallback to in-cluster config (for Kubernetes runtime)
	if restConfig == nil {
		logger.Info("Attempting in-cluster Kubernetes configuration")
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config (tried kubeconfig and in-cluster): %w", err)
		}
	}

	return restConfig, nil
}
