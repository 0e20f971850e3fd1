package snapfetch

import (
	"fmt"
	"net"
	"sort"
	"strconv"
)

// checkpointPath is the leader-side endpoint serving storage-engine
// checkpoints as tar.gz streams.
const checkpointPath = "/checkpoint"

// PeerNode identifies one cluster member and where it serves checkpoints.
// Scheme may be left empty, in which case the configured Policy decides.
type PeerNode struct {
	Id     string
	Host   string
	Port   int
	Scheme string
}

// CheckpointURL builds the node's checkpoint endpoint URL. PolicyHTTP and
// PolicyHTTPS force their scheme; under PolicyHTTPAndHTTPS the node's
// declared scheme wins.
func (n PeerNode) CheckpointURL(policy Policy) string {
	scheme := n.Scheme
	switch policy {
	case PolicyHTTP:
		scheme = "http"
	case PolicyHTTPS:
		scheme = "https"
	default:
		if scheme == "" {
			scheme = "http"
		}
	}
	return scheme + "://" + net.JoinHostPort(n.Host, strconv.Itoa(n.Port)) + checkpointPath
}

func (n PeerNode) String() string {
	return fmt.Sprintf("PeerNode{Id: %s, Host: %s, Port: %d, Scheme: %s}", n.Id, n.Host, n.Port, n.Scheme)
}

// Registry is an immutable id -> PeerNode lookup built once from cluster
// membership. Membership changes are handled by building a replacement with
// Replace and swapping the reference, never by mutating in place.
type Registry struct {
	peers map[string]PeerNode
}

func NewRegistry(nodes []PeerNode) (*Registry, error) {
	peers := make(map[string]PeerNode, len(nodes))
	for _, node := range nodes {
		if node.Id == "" {
			return nil, fmt.Errorf("peer id is required: %v", node)
		}
		if node.Host == "" {
			return nil, fmt.Errorf("peer %q has no host", node.Id)
		}
		if node.Port <= 0 || node.Port > 65535 {
			return nil, fmt.Errorf("peer %q has an invalid port %d", node.Id, node.Port)
		}
		if node.Scheme != "" && node.Scheme != "http" && node.Scheme != "https" {
			return nil, fmt.Errorf("peer %q has an invalid scheme %q", node.Id, node.Scheme)
		}
		if _, ok := peers[node.Id]; ok {
			return nil, fmt.Errorf("duplicate peer id %q", node.Id)
		}
		peers[node.Id] = node
	}
	return &Registry{peers: peers}, nil
}

// Resolve looks up a peer by id. It returns UnknownPeerError on a miss,
// before any network activity happens for the id.
func (r *Registry) Resolve(peerId string) (PeerNode, error) {
	node, ok := r.peers[peerId]
	if !ok {
		return PeerNode{}, &UnknownPeerError{PeerId: peerId}
	}
	return node, nil
}

// Replace builds a fresh registry from the given membership. The receiver is
// left untouched; callers swap the reference when the new registry is ready.
func (r *Registry) Replace(nodes []PeerNode) (*Registry, error) {
	return NewRegistry(nodes)
}

func (r *Registry) Ids() []string {
	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parseHostPort(id, addr string) (PeerNode, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return PeerNode{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return PeerNode{}, fmt.Errorf("invalid port %q", portStr)
	}
	return PeerNode{Id: id, Host: host, Port: port}, nil
}
