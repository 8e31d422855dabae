package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/alexflint/go-arg"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/discovery/memory"
)

const (
	DefaultPort = 2440
	// BindAddress is every IPv4 interface.
	BindAddress = "0.0.0.0"
	programName = "echo"
)

// ErrHelp is returned by Load when -h/--help was requested.
var ErrHelp = arg.ErrHelp

// RuntimeEnvironment represents the execution environment
type RuntimeEnvironment string

const (
	RuntimeKubernetes RuntimeEnvironment = "kubernetes"
	RuntimeContainer  RuntimeEnvironment = "container"
	RuntimeVM         RuntimeEnvironment = "vm"
)

// DiscoveryMode represents how peer addresses are turned into names
type DiscoveryMode string

const (
	DiscoveryNone       DiscoveryMode = "none"
	DiscoveryStatic     DiscoveryMode = "static"
	DiscoveryKubernetes DiscoveryMode = "kubernetes"
)

// args is the whole command line surface.
type args struct {
	Port int `arg:"-p,--port" default:"2440" placeholder:"PORT" help:"Port to listen on"`
}

func (args) Description() string {
	return "Server for the attack: echoes back whatever each client sends"
}

// Config holds all application configuration
type Config struct {
	// Core
	Debug bool

	// Runtime
	Runtime RuntimeEnvironment

	// Server
	Port             int
	HealthServerPort string

	// Peer Discovery
	PeerDiscovery  DiscoveryMode
	StaticPeers    string
	KubeConfigPath string
	KubeContext    string
	Namespace      string // empty watches every namespace
}

// Load parses the command line and then reads the environment.
// args excludes the program name.
func Load(cmdline []string) (*Config, error) {
	var a args
	p, err := arg.NewParser(arg.Config{Program: programName}, &a)
	if err != nil {
		return nil, fmt.Errorf("failed to build argument parser: %w", err)
	}
	if err := p.Parse(cmdline); err != nil {
		if err == arg.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	cfg := &Config{
		Debug: getEnvBool("DEBUG", false),

		Runtime: determineRuntime(),

		Port:             a.Port,
		HealthServerPort: getEnv("HEALTH_SERVER_PORT", ""),

		PeerDiscovery:  determineDiscoveryMode(),
		StaticPeers:    getEnv("STATIC_PEERS", ""),
		KubeConfigPath: getEnv("KUBECONFIG", ""),
		KubeContext:    getEnv("KUBE_CONTEXT", ""),
		Namespace:      determineNamespace(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WriteHelp prints the usage text.
func WriteHelp(w io.Writer) {
	var a args
	p, err := arg.NewParser(arg.Config{Program: programName}, &a)
	if err != nil {
		return
	}
	p.WriteHelp(w)
}

// ListenAddr is the address the echo listener binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(BindAddress, strconv.Itoa(c.Port))
}

// HealthEnabled reports whether the health server should run.
func (c *Config) HealthEnabled() bool {
	return c.HealthServerPort != ""
}

// validate ensures configuration is coherent
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1-65535)", c.Port)
	}

	if c.HealthEnabled() {
		hp, err := strconv.Atoi(c.HealthServerPort)
		if err != nil || hp < 1 || hp > 65535 {
			return fmt.Errorf("invalid HEALTH_SERVER_PORT: %s", c.HealthServerPort)
		}
		if hp == c.Port {
			return fmt.Errorf("HEALTH_SERVER_PORT must differ from the echo port %d", c.Port)
		}
	}

	switch c.PeerDiscovery {
	case DiscoveryNone, DiscoveryKubernetes:
	case DiscoveryStatic:
		if c.StaticPeers == "" {
			return fmt.Errorf("STATIC_PEERS must be set when using static peer discovery")
		}
		if _, err := memory.NewResolver(c.StaticPeers); err != nil {
			return fmt.Errorf("invalid STATIC_PEERS: %w", err)
		}
	default:
		return fmt.Errorf("unsupported PEER_DISCOVERY: %s (supported: none, static, kubernetes)", c.PeerDiscovery)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func determineRuntime() RuntimeEnvironment {
	// Explicit runtime setting
	if runtime := os.Getenv("RUNTIME"); runtime != "" {
		switch strings.ToLower(runtime) {
		case "kubernetes", "k8s":
			return RuntimeKubernetes
		case "container", "docker":
			return RuntimeContainer
		case "vm", "virtual-machine", "bare-metal":
			return RuntimeVM
		}
	}

	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount"); err == nil {
		return RuntimeKubernetes
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return RuntimeContainer
	}

	return RuntimeVM
}

// determineNamespace limits pod lookups; empty means every namespace.
func determineNamespace() string {
	if ns := os.Getenv("NAMESPACE"); ns != "" {
		return ns
	}

	// Kubernetes downward API
	return os.Getenv("POD_NAMESPACE")
}

func determineDiscoveryMode() DiscoveryMode {
	// Explicit mode; unknown values are rejected by validate
	if mode := os.Getenv("PEER_DISCOVERY"); mode != "" {
		switch strings.ToLower(mode) {
		case "k8s":
			return DiscoveryKubernetes
		default:
			return DiscoveryMode(strings.ToLower(mode))
		}
	}

	// Auto-detect: Static if STATIC_PEERS is set
	if os.Getenv("STATIC_PEERS") != "" {
		return DiscoveryStatic
	}

	return DiscoveryNone
}
