package sset

import (
	"fmt"
	"strings"
)

// BackendURL is the parsed form of a --redis-url value.
type BackendURL struct {
	// Cluster is true for "redis-cluster://..." URLs, false for a plain
	// single-node URL.
	Cluster bool
	// Nodes is the root-node address list for a cluster URL, or the
	// single address for a non-cluster URL.
	Nodes []string
	// AddrMap remaps internal cluster node addresses (as seen in MOVED/
	// CLUSTER SLOTS replies) to externally reachable ones. Empty when no
	// "+addr=..." suffix was given.
	AddrMap map[string]string
}

const clusterScheme = "redis-cluster://"

// ParseBackendURL parses a --redis-url value. A URL of the form
// "redis-cluster://node1,node2[,...][+addr=host:port,...]" is parsed into a
// root-node list plus an optional node-address remap. Any other URL is
// treated as a single-node URL and returned verbatim in Nodes[0].
func ParseBackendURL(raw string) (BackendURL, error) {
	if raw == "" {
		return BackendURL{}, fmt.Errorf("empty redis URL")
	}

	if !strings.HasPrefix(raw, clusterScheme) {
		return BackendURL{Cluster: false, Nodes: []string{raw}}, nil
	}

	rest := raw[len(clusterScheme):]

	nodesPart := rest
	addrPart := ""
	if idx := strings.Index(rest, "+addr="); idx >= 0 {
		nodesPart = rest[:idx]
		addrPart = rest[idx+len("+addr="):]
	}

	nodesPart = strings.TrimSuffix(nodesPart, "/")
	if nodesPart == "" {
		return BackendURL{}, fmt.Errorf("redis-cluster URL has no node list: %q", raw)
	}
	nodes := splitNonEmpty(nodesPart, ',')

	// The "+addr=" suffix lists externally reachable addresses positionally
	// matched to the root-node list: the Nth address remaps the Nth node.
	var addrMap map[string]string
	if addrPart != "" {
		addrs := splitNonEmpty(addrPart, ',')
		if len(addrs) != len(nodes) {
			return BackendURL{}, fmt.Errorf(
				"redis-cluster URL %q has %d nodes but %d remapped addresses", raw, len(nodes), len(addrs))
		}
		addrMap = make(map[string]string, len(nodes))
		for i, node := range nodes {
			addrMap[node] = addrs[i]
		}
	}

	return BackendURL{Cluster: true, Nodes: nodes, AddrMap: addrMap}, nil
}

func splitNonEmpty(s string, sep byte) []string {
	parts := strings.Split(s, string(sep))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
