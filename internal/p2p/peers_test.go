package p2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAddContainsRemove(t *testing.T) {
	r := NewRegistry("127.0.0.1:2001")
	assert.True(t, r.Contains("127.0.0.1:2001"))
	assert.False(t, r.Contains("127.0.0.1:3000"))

	r.Add("127.0.0.1:3000")
	assert.True(t, r.Contains("127.0.0.1:3000"))

	r.Remove("127.0.0.1:3000")
	assert.False(t, r.Contains("127.0.0.1:3000"))
}

func TestRegistryAllReturnsSnapshot(t *testing.T) {
	r := NewRegistry("a", "b")
	all := r.All()
	assert.ElementsMatch(t, []string{"a", "b"}, all)
}

func TestRegistryPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry("a", "b")
	r.Add("c")
	r.Add("a") // already known, must not move or duplicate

	assert.Equal(t, []string{"a", "b", "c"}, r.All())
}

func TestRegistryFirst(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "", r.First())

	r.Add("b")
	r.Add("a")
	assert.Equal(t, "b", r.First())

	r.Remove("b")
	assert.Equal(t, "a", r.First())
}
