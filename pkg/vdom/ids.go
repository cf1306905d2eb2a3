package vdom

import (
	"strconv"
	"sync"
)

// IDGenerator hands out node ids ("n1", "n2", ...). Ids are unique within
// one generator, which the layout owns, so they never collide with the ids
// of another session.
type IDGenerator struct {
	counter uint64
	mu      sync.Mutex
}

// NewIDGenerator creates a new IDGenerator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return "n" + strconv.FormatUint(g.counter, 10)
}

// Current returns the current counter value without incrementing.
func (g *IDGenerator) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

// AssignIDs gives an id to every element and fragment in the tree that does
// not have one yet. Component nodes are walked through.
func AssignIDs(node *VNode, gen *IDGenerator) {
	if node == nil {
		return
	}
	if (node.Kind == KindElement || node.Kind == KindFragment) && node.ID == "" {
		node.ID = gen.Next()
	}
	for _, child := range node.Children {
		AssignIDs(child, gen)
	}
}

// TargetID returns the handler registry key for an event on a node.
func TargetID(nodeID, event string) string {
	return nodeID + ":" + event
}
