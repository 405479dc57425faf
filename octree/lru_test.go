package octree

import "testing"

func TestNodeLRUTouch(t *testing.T) {
	cache, err := NewSharedNodeLRU(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := &StaticNode{NodeLevel: 1}
	b := &StaticNode{NodeLevel: 2}
	c := &StaticNode{NodeLevel: 3}

	cache.Touch(a)
	cache.Touch(b)
	cache.Touch(a)
	cache.Touch(c)

	if cache.cache.Contains(Node(b)) {
		t.Errorf("expected b to be evicted once capacity exceeded and a was re-touched")
	}
	if !cache.cache.Contains(Node(a)) || !cache.cache.Contains(Node(c)) {
		t.Errorf("expected a and c to still be present")
	}
}
