package status

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "inspect node status",
		Long: `Inspect node status.

When a node is started with '--admin.bind-addr', it exposes a status API to
inspect the state of the node, this can be used to answer questions such as:
* Has the node received 'init'?
* Which neighbours is the node gossiping with?
* Which broadcast values has the node seen?

See 'status --help' for the availale commands.

Examples:
  # Inspect the node runtime.
  glomers status node

  # Inspect the workload state of node 10.26.104.56:8002.
  glomers status workload --server.url http://10.26.104.56:8002
`,
	}

	cmd.AddCommand(newNodeCommand())
	cmd.AddCommand(newWorkloadCommand())

	return cmd
}
