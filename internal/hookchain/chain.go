package hookchain

import (
	"context"
	"fmt"
	"reflect"

	"github.com/passline/mcp-gate/pkg/mcp"
)

// Node is one link of the chain: a Hook plus its neighbors and its
// precomputed method-presence cache. Node identity — not the Hook it
// wraps — is what the Pipeline Processor uses for "resume from here"
// semantics (the lastProcessedNode marker, and the node-after-the-async-hook
// a continueAsync resumption continues from).
//
// Invariant: once a Chain is built, nodes never move, and a Node is never
// shared between two Chains.
type Node struct {
	hook Hook
	prev *Node
	next *Node

	// implemented caches, per hook-method name, whether this node's hook
	// implements it. Populated once in Build by probing the full closed set
	// of taxonomy method names (mcp.AllHookMethodNames), so no message ever
	// triggers a fresh reflect.Value.MethodByName lookup.
	implemented map[string]bool
}

// Hook returns the hook this node wraps.
func (n *Node) Hook() Hook { return n.hook }

// Prev returns the previous node, or nil at the head.
func (n *Node) Prev() *Node { return n.prev }

// Next returns the next node, or nil at the tail.
func (n *Node) Next() *Node { return n.next }

func (n *Node) has(methodName string) bool {
	if methodName == "" {
		return false
	}
	return n.implemented[methodName]
}

// Chain is the immutable, ordered sequence of hook Nodes. It is built once
// via Build and never mutated afterward.
type Chain struct {
	head  *Node
	tail  *Node
	nodes []*Node
}

// Head returns the first node, or nil if the chain is empty.
func (c *Chain) Head() *Node { return c.head }

// Tail returns the last node, or nil if the chain is empty.
func (c *Chain) Tail() *Node { return c.tail }

// Len returns the number of hooks in the chain.
func (c *Chain) Len() int { return len(c.nodes) }

// Empty reports whether the chain has no hooks.
func (c *Chain) Empty() bool { return len(c.nodes) == 0 }

// StartNode returns the first node to visit when traversing in dir starting
// from the chain's natural ends: head for forward traversal, tail for
// reverse. Returns nil for an empty chain.
func (c *Chain) StartNode(forward bool) *Node {
	if forward {
		return c.head
	}
	return c.tail
}

// Build constructs an immutable Chain from an ordered slice of hooks.
// An empty input yields an empty chain (head == tail == nil).
func Build(hooks []Hook) *Chain {
	methodNames := mcp.AllHookMethodNames()

	chain := &Chain{}
	var prev *Node
	for _, h := range hooks {
		node := &Node{hook: h, implemented: probeAll(h, methodNames)}
		if prev == nil {
			chain.head = node
		} else {
			prev.next = node
			node.prev = prev
		}
		prev = node
		chain.nodes = append(chain.nodes, node)
	}
	chain.tail = prev
	return chain
}

// Advance returns the next node to visit after n when walking in the given
// direction: n.Next() when forward is true, n.Prev() otherwise.
func Advance(n *Node, forward bool) *Node {
	if n == nil {
		return nil
	}
	if forward {
		return n.Next()
	}
	return n.Prev()
}

// Invoke calls the named method on a node's hook via reflection, with the
// given arguments, and interprets the two return values as (HookOutcome,
// error). present reports whether the hook implements the named method at
// all; when present is false, callers must treat the state as unchanged and
// advance without updating lastProcessedNode, per §4.C.1.
//
// methodName is resolved from the taxonomy's HookMethods so there is never
// implicit name derivation (spec.md §4.F) — the taxonomy is the single
// source of truth for which method a channel dispatches to.
func Invoke(ctx context.Context, node *Node, methodName string, args ...interface{}) (outcome HookOutcome, err error, present bool) {
	if !node.has(methodName) {
		return HookOutcome{}, nil, false
	}

	v := reflect.ValueOf(node.hook)
	method := v.MethodByName(methodName)
	if !method.IsValid() {
		// The build-time probe said this method exists; a live mismatch
		// here would mean the hook mutated its own method set after the
		// chain was built, which is a wiring bug, not a protocol error.
		return HookOutcome{}, nil, false
	}

	callArgs := make([]reflect.Value, 0, len(args)+1)
	callArgs = append(callArgs, reflect.ValueOf(ctx))
	for _, a := range args {
		callArgs = append(callArgs, reflect.ValueOf(a))
	}

	results := method.Call(callArgs)
	if len(results) != 2 {
		return HookOutcome{}, fmt.Errorf("hook %q method %s: expected 2 return values, got %d", node.hook.Name(), methodName, len(results)), true
	}

	outcomeVal, _ := results[0].Interface().(HookOutcome)
	if errVal, ok := results[1].Interface().(error); ok {
		err = errVal
	}
	return outcomeVal, err, true
}

// Implements reports whether node's hook implements methodName, from the
// build-time probe cache.
func Implements(node *Node, methodName string) bool {
	return node.has(methodName)
}

// probeAll probes hook via reflection for every name in methodNames once,
// at chain-build time, returning the presence map cached on the Node for
// the rest of the chain's lifetime.
func probeAll(hook Hook, methodNames []string) map[string]bool {
	v := reflect.ValueOf(hook)
	implemented := make(map[string]bool, len(methodNames))
	for _, name := range methodNames {
		implemented[name] = v.MethodByName(name).IsValid()
	}
	return implemented
}
