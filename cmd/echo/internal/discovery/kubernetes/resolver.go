package kubernetes

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"
)

const podIPIndex = "podIP"

// K8sResolver names peers after the pod that owns their IP.
type K8sResolver struct {
	indexer cache.Indexer
	synced  cache.InformerSynced
}

// NewK8sResolver starts a pod informer (all namespaces when namespace is
// empty) in the background and returns without waiting for the API server.
// Until the first list completes Resolve reports ErrPeerNotFound. The
// informer stops with ctx.
func NewK8sResolver(ctx context.Context, clientset kubernetes.Interface, namespace string) (*K8sResolver, error) {
	opts := []informers.SharedInformerOption{}
	if namespace != "" {
		opts = append(opts, informers.WithNamespace(namespace))
	}
	factory := informers.NewSharedInformerFactoryWithOptions(clientset, 10*time.Minute, opts...)
	podInformer := factory.Core().V1().Pods().Informer()

	if err := podInformer.AddIndexers(cache.Indexers{podIPIndex: indexByPodIP}); err != nil {
		return nil, fmt.Errorf("failed to add pod IP index: %w", err)
	}

	// Start the informer in the background
	factory.Start(ctx.Done())

	return &K8sResolver{
		indexer: podInformer.GetIndexer(),
		synced:  podInformer.HasSynced,
	}, nil
}

// HasSynced reports whether the pod cache holds a full list.
func (r *K8sResolver) HasSynced() bool {
	return r.synced()
}

// WaitForSync blocks until the pod cache is synced or ctx is done.
func (r *K8sResolver) WaitForSync(ctx context.Context) bool {
	return cache.WaitForCacheSync(ctx.Done(), r.synced)
}

func indexByPodIP(obj interface{}) ([]string, error) {
	pod, ok := obj.(*corev1.Pod)
	if !ok {
		return nil, nil
	}
	// Host network pods share the node IP
	if pod.Spec.HostNetwork {
		return nil, nil
	}

	var ips []string
	seen := make(map[string]bool)
	add := func(ip string) {
		if ip != "" && !seen[ip] {
			seen[ip] = true
			ips = append(ips, ip)
		}
	}
	add(pod.Status.PodIP)
	for _, podIP := range pod.Status.PodIPs {
		add(podIP.IP)
	}
	return ips, nil
}

func (r *K8sResolver) Resolve(ctx context.Context, addr net.Addr) (string, error) {
	ip := core.PeerIP(addr)
	if ip == nil {
		return "", fmt.Errorf("cannot extract IP from %s", addr)
	}

	if !r.synced() {
		return "", fmt.Errorf("%w: pod cache not synced yet", core.ErrPeerNotFound)
	}

	objs, err := r.indexer.ByIndex(podIPIndex, ip.String())
	if err != nil {
		return "", fmt.Errorf("pod index lookup failed: %w", err)
	}

	// Finished pods may still carry an IP that was handed to a new pod
	for _, obj := range objs {
		pod, ok := obj.(*corev1.Pod)
		if !ok {
			continue
		}
		if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
			continue
		}
		return pod.Namespace + "/" + pod.Name, nil
	}

	return "", fmt.Errorf("%w: no pod with IP %s", core.ErrPeerNotFound, ip)
}
