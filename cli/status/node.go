package status

import (
	"fmt"
	"net/url"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/glomers/status/client"
	"github.com/andydunstall/glomers/status/config"
)

func newNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "inspect node runtime",
		Long: `Inspect the node runtime.

Queries the node for its ID, the IDs of the nodes in the cluster and whether
it has completed the 'init' handshake.

Examples:
  glomers status node
`,
	}

	var conf config.Config
	registerServerFlags(cmd, &conf)

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		showNode(&conf)
	}

	return cmd
}

func showNode(conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	st, err := client.Node()
	if err != nil {
		fmt.Printf("failed to get node status: %s\n", err.Error())
		os.Exit(1)
	}

	b, _ := yaml.Marshal(st)
	fmt.Println(string(b))
}

func newWorkloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "inspect node workload",
		Long: `Inspect the node workload.

Queries the node for the state of its workload. Such as a 'broadcast' node
returns its phase, neighbours and the values it has seen.

Examples:
  glomers status workload
`,
	}

	var conf config.Config
	registerServerFlags(cmd, &conf)

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		showWorkload(&conf)
	}

	return cmd
}

func showWorkload(conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	st, err := client.Workload()
	if err != nil {
		fmt.Printf("failed to get workload status: %s\n", err.Error())
		os.Exit(1)
	}

	b, _ := yaml.Marshal(st)
	fmt.Println(string(b))
}

func registerServerFlags(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().StringVar(
		&conf.Server.URL,
		"server.url",
		"http://localhost:8002",
		`
Node admin server URL. This URL should point to the nodes '--admin.bind-addr'.
`,
	)
}
