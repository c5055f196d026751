package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-sockaddr"
	rungroup "github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andydunstall/glomers/admin"
	"github.com/andydunstall/glomers/cli/status"
	"github.com/andydunstall/glomers/config"
	"github.com/andydunstall/glomers/node"
	pkgconfig "github.com/andydunstall/glomers/pkg/config"
	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
	"github.com/andydunstall/glomers/workload"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "glomers [command] (flags)",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Short: "run a maelstrom node",
		Long: `Glomers runs a node for the Maelstrom distributed systems workbench.

The node reads one JSON message per line from stdin and writes one JSON message
per line to stdout. Logs are written to stderr.

After the 'init' handshake, a 'broadcast' node accepts 'broadcast', 'read' and
'topology' requests. Once it receives a topology it gossips its full set of
values to a random neighbour and a random peer every '--gossip.interval',
until every node in the cluster has seen every value.

Maelstrom starts the node without arguments:

  $ maelstrom test -w broadcast --bin glomers --node-count 5 --time-limit 20

Optionally expose metrics and the node status over HTTP with:

  $ glomers --admin.bind-addr :8002

Then inspect the node with:

  $ glomers status workload
`,
	}

	conf := config.Default()

	var configPath string
	cmd.Flags().StringVar(
		&configPath,
		"config.path",
		"",
		`
YAML config file path.`,
	)

	var configExpandEnv bool
	cmd.Flags().BoolVar(
		&configExpandEnv,
		"config.expand-env",
		false,
		`
Whether to expand environment variables in the config file.

This will replaces references to ${VAR} or $VAR with the corresponding
environment variable. The replacement is case-sensitive.

References to undefined variables will be replaced with an empty string. A
default value can be given using form ${VAR:default}.`,
	)

	// Register flags and set default values.
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		// Stdout is reserved for protocol messages so errors are written to
		// stderr.
		if configPath != "" {
			if err := pkgconfig.Load(conf, configPath, configExpandEnv); err != nil {
				fmt.Fprintf(os.Stderr, "load config: %s\n", err.Error())
				os.Exit(1)
			}
		}

		if err := conf.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(conf.Log.Level, conf.Log.Subsystems)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		if conf.Admin.Enabled() && conf.Admin.AdvertiseAddr == "" {
			advertiseAddr, err := advertiseAddrFromBindAddr(conf.Admin.BindAddr)
			if err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				os.Exit(1)
			}
			conf.Admin.AdvertiseAddr = advertiseAddr
		}

		if err := run(conf, logger); err != nil {
			logger.Error("failed to run node", zap.Error(err))
			os.Exit(1)
		}
	}

	cmd.AddCommand(status.NewCommand())

	return cmd
}

func run(conf *config.Config, logger log.Logger) error {
	logger.Info("starting node", zap.Any("conf", conf))

	registry := prometheus.NewRegistry()

	actor, err := workload.New(conf.Node.Workload, registry, logger)
	if err != nil {
		return fmt.Errorf("workload: %w", err)
	}

	runtime := node.NewRuntime(
		actor,
		protocol.NewTransport(os.Stdin, os.Stdout),
		node.WithTickInterval(conf.Gossip.Interval),
		node.WithQueueSize(conf.Node.QueueSize),
		node.WithLogger(logger),
	)
	runtime.Metrics().Register(registry)

	var group rungroup.Group

	// Termination handler.
	signalCtx, signalCancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	group.Add(func() error {
		select {
		case sig := <-signalCh:
			logger.Info(
				"received shutdown signal",
				zap.String("signal", sig.String()),
			)
			return nil
		case <-signalCtx.Done():
			return nil
		}
	}, func(error) {
		signalCancel()
	})

	// Node runtime. Returns once stdin is closed.
	runCtx, runCancel := context.WithCancel(context.Background())
	group.Add(func() error {
		if err := runtime.Run(runCtx); err != nil {
			return fmt.Errorf("node: %w", err)
		}
		logger.Info("node stopped")
		return nil
	}, func(error) {
		runCancel()
	})

	// Admin server.
	if conf.Admin.Enabled() {
		adminLn, err := net.Listen("tcp", conf.Admin.BindAddr)
		if err != nil {
			return fmt.Errorf("admin listen: %s: %w", conf.Admin.BindAddr, err)
		}
		adminServer := admin.NewServer(registry, logger)
		adminServer.AddStatus("/node", node.NewStatus(runtime))

		logger.Info(
			"admin server enabled",
			zap.String("advertise-addr", conf.Admin.AdvertiseAddr),
		)

		group.Add(func() error {
			if err := adminServer.Serve(adminLn); err != nil {
				return fmt.Errorf("admin server serve: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				conf.GracePeriod,
			)
			defer cancel()

			if err := adminServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to gracefully shutdown admin server", zap.Error(err))
			}

			logger.Info("admin server shut down")
		})
	}

	if err := group.Run(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

func advertiseAddrFromBindAddr(bindAddr string) (string, error) {
	if strings.HasPrefix(bindAddr, ":") {
		bindAddr = "0.0.0.0" + bindAddr
	}

	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "", fmt.Errorf("invalid bind addr: %s: %w", bindAddr, err)
	}

	if host == "0.0.0.0" {
		ip, err := sockaddr.GetPrivateIP()
		if err != nil {
			return "", fmt.Errorf("get interface addr: %w", err)
		}
		if ip == "" {
			return "", fmt.Errorf("no private ip found")
		}
		return ip + ":" + port, nil
	}
	return bindAddr, nil
}

func init() {
	cobra.EnableCommandSorting = false
}
