package broadcast

import (
	"encoding/json"
	"slices"

	"github.com/andydunstall/glomers/pkg/protocol"
)

// parseNeighbours returns the neighbours of node self from the 'topology'
// field of the request.
//
// Fails with a bad topology error if the topology is missing or not an
// object, self has no entry, the entry is not an array of strings, or the
// entry names a node not in the cluster. Self is removed from the returned
// neighbours.
func parseNeighbours(
	req *protocol.Request,
	self string,
	peers []string,
) ([]string, error) {
	raw, ok := req.Body["topology"]
	if !ok {
		return nil, protocol.Errorf(
			protocol.CodeBadTopology, "missing topology",
		)
	}

	var topology map[string]json.RawMessage
	if err := json.Unmarshal(raw, &topology); err != nil || topology == nil {
		return nil, protocol.Errorf(
			protocol.CodeBadTopology, "topology not an object",
		)
	}

	entry, ok := topology[self]
	if !ok {
		return nil, protocol.Errorf(
			protocol.CodeBadTopology, "topology missing node: %s", self,
		)
	}

	var neighbours []string
	if err := json.Unmarshal(entry, &neighbours); err != nil || neighbours == nil {
		return nil, protocol.Errorf(
			protocol.CodeBadTopology,
			"topology entry not an array of strings: %s", self,
		)
	}

	// The node may be listed as its own neighbour though never gossips to
	// itself.
	neighbours = slices.DeleteFunc(neighbours, func(n string) bool {
		return n == self
	})
	for _, neighbour := range neighbours {
		if !slices.Contains(peers, neighbour) {
			return nil, protocol.Errorf(
				protocol.CodeBadTopology, "unknown neighbour: %s", neighbour,
			)
		}
	}

	// Remove duplicates so each neighbour has the same chance of being
	// selected for gossip.
	slices.Sort(neighbours)
	return slices.Compact(neighbours), nil
}
