package snapfetch

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

func TestRegistryResolve(t *testing.T) {
	registry, err := NewRegistry([]PeerNode{
		{Id: "om1", Host: "host1", Port: 9872},
		{Id: "om2", Host: "host2", Port: 9872},
	})
	assert.NilError(t, err)

	node, err := registry.Resolve("om2")
	assert.NilError(t, err)
	assert.Equal(t, node.Host, "host2")
}

func TestRegistryResolveUnknownPeer(t *testing.T) {
	registry, err := NewRegistry([]PeerNode{{Id: "om1", Host: "host1", Port: 9872}})
	assert.NilError(t, err)

	_, err = registry.Resolve("om9")
	var unknownErr *UnknownPeerError
	assert.Assert(t, errors.As(err, &unknownErr))
	assert.Equal(t, unknownErr.PeerId, "om9")
}

func TestNewRegistryRejectsBadNodes(t *testing.T) {
	for _, nodes := range [][]PeerNode{
		{{Id: "", Host: "h", Port: 1}},
		{{Id: "a", Host: "", Port: 1}},
		{{Id: "a", Host: "h", Port: 0}},
		{{Id: "a", Host: "h", Port: 70000}},
		{{Id: "a", Host: "h", Port: 1, Scheme: "ftp"}},
		{{Id: "a", Host: "h", Port: 1}, {Id: "a", Host: "h2", Port: 2}},
	} {
		_, err := NewRegistry(nodes)
		assert.Assert(t, err != nil, "expected error for %v", nodes)
	}
}

func TestRegistryReplaceLeavesOriginalUntouched(t *testing.T) {
	registry, err := NewRegistry([]PeerNode{{Id: "om1", Host: "host1", Port: 9872}})
	assert.NilError(t, err)

	replaced, err := registry.Replace([]PeerNode{{Id: "om2", Host: "host2", Port: 9872}})
	assert.NilError(t, err)

	_, err = registry.Resolve("om1")
	assert.NilError(t, err)
	_, err = registry.Resolve("om2")
	assert.Assert(t, err != nil)

	_, err = replaced.Resolve("om2")
	assert.NilError(t, err)
	_, err = replaced.Resolve("om1")
	assert.Assert(t, err != nil)
}

func TestRegistryIds(t *testing.T) {
	registry, err := NewRegistry([]PeerNode{
		{Id: "om3", Host: "h", Port: 1},
		{Id: "om1", Host: "h", Port: 1},
		{Id: "om2", Host: "h", Port: 1},
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, registry.Ids(), []string{"om1", "om2", "om3"})
}

func TestCheckpointURL(t *testing.T) {
	node := PeerNode{Id: "om1", Host: "host1", Port: 9872}

	assert.Equal(t, node.CheckpointURL(PolicyHTTP), "http://host1:9872/checkpoint")
	assert.Equal(t, node.CheckpointURL(PolicyHTTPS), "https://host1:9872/checkpoint")
	assert.Equal(t, node.CheckpointURL(PolicyHTTPAndHTTPS), "http://host1:9872/checkpoint")

	node.Scheme = "https"
	assert.Equal(t, node.CheckpointURL(PolicyHTTPAndHTTPS), "https://host1:9872/checkpoint")
	assert.Equal(t, node.CheckpointURL(PolicyHTTP), "http://host1:9872/checkpoint")
}

func TestParsePeerList(t *testing.T) {
	peers, err := ParsePeerList("om1=host1:9872, om2=host2:9873")
	assert.NilError(t, err)
	assert.DeepEqual(t, peers, []PeerNode{
		{Id: "om1", Host: "host1", Port: 9872},
		{Id: "om2", Host: "host2", Port: 9873},
	})

	_, err = ParsePeerList("om1")
	assert.ErrorContains(t, err, "expected 'id=host:port'")

	_, err = ParsePeerList("om1=host1")
	assert.Assert(t, err != nil)
}
