// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"sort"
	"strings"
)

// ActionKind is the kind of change one action applies to the tree.
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionRemove ActionKind = "remove"
	ActionUpdate ActionKind = "update"
	ActionMove   ActionKind = "move"
)

// Action pairs a kind with the node it applies to. Node belongs to the
// ideal tree except for plain removals, where it is the current node
// going away. From carries the current-tree counterpart for update and
// move actions.
type Action struct {
	Kind ActionKind
	Node *Node
	From *Node
}

// DiffTrees compares the current on-disk tree against the ideal tree by
// structural position and emits the minimal ordered action list that
// turns one into the other. Removals come out bottom-up and additions
// top-down so transient broken states are minimized; within one depth
// the order is stable by name. The result is deterministic for
// identical inputs.
func DiffTrees(current, ideal *Node) []Action {
	cur := indexTree(current)
	idl := indexTree(ideal)

	var removes, adds, updates []Action
	for rel, node := range cur {
		if _, ok := idl[rel]; !ok {
			removes = append(removes, Action{Kind: ActionRemove, Node: node})
		}
	}
	for rel, node := range idl {
		have, ok := cur[rel]
		if !ok {
			adds = append(adds, Action{Kind: ActionAdd, Node: node})
			continue
		}
		if have.Name() != node.Name() || have.Package.Version != node.Package.Version {
			updates = append(updates, Action{Kind: ActionUpdate, Node: node, From: have})
		}
	}

	sortBottomUp(removes)
	sortTopDown(adds)
	sortTopDown(updates)

	moves := pairMoves(&removes, &adds)

	actions := make([]Action, 0, len(removes)+len(moves)+len(adds)+len(updates))
	actions = append(actions, removes...)
	actions = append(actions, moves...)
	actions = append(actions, mergeTopDown(adds, updates)...)
	return actions
}

// indexTree maps each non-root node to its path relative to the root.
func indexTree(root *Node) map[string]*Node {
	idx := make(map[string]*Node)
	prefix := root.Path
	root.Walk(func(n *Node) {
		if n == root {
			return
		}
		rel := strings.TrimPrefix(n.Path, prefix)
		idx[strings.TrimLeft(rel, "/\\")] = n
	})
	return idx
}

// pairMoves matches pending additions against pending removals of the
// same name and version. Each pair collapses into a single move of the
// on-disk copy to its new position.
func pairMoves(removes, adds *[]Action) []Action {
	var moves []Action
	remaining := (*removes)[:0]
	for _, rm := range *removes {
		paired := false
		for i, ad := range *adds {
			if ad.Node.Name() == rm.Node.Name() && ad.Node.Package.Version == rm.Node.Package.Version {
				moves = append(moves, Action{Kind: ActionMove, Node: ad.Node, From: rm.Node})
				*adds = append((*adds)[:i], (*adds)[i+1:]...)
				paired = true
				break
			}
		}
		if !paired {
			remaining = append(remaining, rm)
		}
	}
	*removes = remaining
	sortTopDown(moves)
	return moves
}

// mergeTopDown interleaves adds and updates into one top-down sequence.
func mergeTopDown(adds, updates []Action) []Action {
	merged := append(append([]Action(nil), adds...), updates...)
	sortTopDown(merged)
	return merged
}

func sortTopDown(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		di, dj := nodeDepth(actions[i].Node), nodeDepth(actions[j].Node)
		if di != dj {
			return di < dj
		}
		return actions[i].Node.Path < actions[j].Node.Path
	})
}

func sortBottomUp(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		di, dj := nodeDepth(actions[i].Node), nodeDepth(actions[j].Node)
		if di != dj {
			return di > dj
		}
		return actions[i].Node.Path < actions[j].Node.Path
	})
}

func nodeDepth(n *Node) int {
	depth := 0
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		depth++
	}
	return depth
}
