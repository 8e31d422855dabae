package memory

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
)

// Resolver is read-only after construction.
type Resolver struct {
	peers map[string]string
}

// NewResolver creates a new memory resolver from a comma-separated string
// Format: "ip=name,..."
// Example: "10.0.0.2=attacker,10.0.0.3=victim"
func NewResolver(mappingStr string) (*Resolver, error) {
	peers := make(map[string]string)
	if mappingStr == "" {
		return &Resolver{peers: peers}, nil
	}

	pairs := strings.Split(mappingStr, ",")
	for _, pair := range pairs {
		parts := strings.Split(strings.TrimSpace(pair), "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid mapping format: %s", pair)
		}
		ip := net.ParseIP(strings.TrimSpace(parts[0]))
		if ip == nil {
			return nil, fmt.Errorf("invalid peer IP in mapping: %s", pair)
		}
		name := strings.TrimSpace(parts[1])
		if name == "" {
			return nil, fmt.Errorf("empty peer name in mapping: %s", pair)
		}
		peers[ip.String()] = name
	}

	return &Resolver{peers: peers}, nil
}

func (r *Resolver) Resolve(ctx context.Context, addr net.Addr) (string, error) {
	ip := core.PeerIP(addr)
	if ip == nil {
		return "", fmt.Errorf("cannot extract IP from %s", addr)
	}

	name, ok := r.peers[ip.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrPeerNotFound, ip)
	}
	return name, nil
}
