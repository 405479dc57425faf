package octree

import lru "github.com/hashicorp/golang-lru/v2"

// NodeLRU is the process-wide shared cache of loaded octree nodes. The
// profile core is only ever a reader of it: it calls Touch on every node
// whose points it consumes, to protect that node's working set from being
// evicted by the concurrent rendering traversal. Eviction policy and
// capacity are owned by whatever subsystem constructs the cache.
type NodeLRU struct {
	cache *lru.Cache[any, Node]
}

// NewSharedNodeLRU returns a cache with the given capacity, for hosts that
// don't already have one wired from the octree subsystem.
func NewSharedNodeLRU(capacity int) (*NodeLRU, error) {
	c, err := lru.New[any, Node](capacity)
	if err != nil {
		return nil, err
	}
	return &NodeLRU{cache: c}, nil
}

// Touch marks node as recently used.
func (n *NodeLRU) Touch(node Node) {
	n.cache.Add(node, node)
}
