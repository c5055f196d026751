package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/pflag"

	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/workload"
)

type NodeConfig struct {
	// Workload is the workload the node runs.
	Workload string `json:"workload" yaml:"workload"`

	// QueueSize is the maximum number of events waiting to be processed
	// before reading from the input blocks.
	QueueSize int `json:"queue_size" yaml:"queue_size"`
}

func (c *NodeConfig) Validate() error {
	if c.Workload == "" {
		return fmt.Errorf("missing workload")
	}
	if !slices.Contains(workload.Names, c.Workload) {
		return fmt.Errorf("unsupported workload: %s", c.Workload)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	return nil
}

type GossipConfig struct {
	// Interval is the period between gossip rounds once the node has a
	// topology.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

func (c *GossipConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

type AdminConfig struct {
	// BindAddr is the address to bind to listen for incoming HTTP
	// connections. If empty the admin server is disabled.
	BindAddr string `json:"bind_addr" yaml:"bind_addr"`

	// AdvertiseAddr is the address to advertise to clients.
	AdvertiseAddr string `json:"advertise_addr" yaml:"advertise_addr"`
}

func (c *AdminConfig) Enabled() bool {
	return c.BindAddr != ""
}

func (c *AdminConfig) Validate() error {
	if c.AdvertiseAddr != "" && c.BindAddr == "" {
		return fmt.Errorf("advertise addr set without bind addr")
	}
	return nil
}

type Config struct {
	Node   NodeConfig   `json:"node" yaml:"node"`
	Gossip GossipConfig `json:"gossip" yaml:"gossip"`
	Admin  AdminConfig  `json:"admin" yaml:"admin"`
	Log    log.Config   `json:"log" yaml:"log"`

	// GracePeriod is the duration to gracefully shutdown the admin server.
	GracePeriod time.Duration `json:"grace_period" yaml:"grace_period"`
}

func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Workload:  workload.Broadcast,
			QueueSize: 1024,
		},
		Gossip: GossipConfig{
			Interval: time.Millisecond * 50,
		},
		Log: log.Config{
			Level: "info",
		},
		GracePeriod: time.Second * 5,
	}
}

func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if err := c.Gossip.Validate(); err != nil {
		return fmt.Errorf("gossip: %w", err)
	}
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if c.GracePeriod == 0 {
		return fmt.Errorf("missing grace period")
	}

	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	defaultConfig := Default()

	fs.StringVar(
		&c.Node.Workload,
		"node.workload",
		defaultConfig.Node.Workload,
		fmt.Sprintf(`
The workload the node runs. Supports %v.`, workload.Names),
	)
	fs.IntVar(
		&c.Node.QueueSize,
		"node.queue-size",
		defaultConfig.Node.QueueSize,
		`
The maximum number of events waiting to be processed by the node.

Once the queue is full, reading from the input blocks until the node catches
up. Gossip ticks are dropped rather than waiting for space.`,
	)

	fs.DurationVar(
		&c.Gossip.Interval,
		"gossip.interval",
		defaultConfig.Gossip.Interval,
		`
The period between gossip rounds.

The node starts gossiping once it receives a topology. Each round sends the
nodes full message set to a random neighbour and a random peer.`,
	)

	fs.StringVar(
		&c.Admin.BindAddr,
		"admin.bind-addr",
		"",
		`
The host/port to listen for incoming admin connections.

The admin server exposes metrics and the node status. If empty the admin
server is disabled, which is the default since the node protocol runs over
stdin/stdout.

If the host is unspecified it defaults to all listeners, such as
'--admin.bind-addr :8002' will listen on '0.0.0.0:8002'`,
	)
	fs.StringVar(
		&c.Admin.AdvertiseAddr,
		"admin.advertise-addr",
		"",
		`
Admin listen address to advertise to clients.

By default, if the bind address includes an IP to bind to that will be used.
If the bind address does not include an IP (such as ':8002') the nodes
private IP will be used.`,
	)

	c.Log.RegisterFlags(fs)

	fs.DurationVar(
		&c.GracePeriod,
		"grace-period",
		defaultConfig.GracePeriod,
		`
Maximum duration after a shutdown signal is received (SIGTERM or
SIGINT) to gracefully shutdown the admin server.`,
	)
}
