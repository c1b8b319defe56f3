// Package commenttree turns the flat comment list of a story into the
// nested reply forest rendered by clients.
package commenttree

import (
	"slices"

	"reunion_archive/internal/model"
)

// Build links comments into a forest of reply trees.
//
// Input is expected newest-first, as the repository returns it. Roots keep
// that order; replies at every depth are ordered oldest-first. A comment is a
// root when its parent is the sentinel, is missing from the batch or is the
// comment itself. A parent loop is broken by promoting one of its members to
// root, so every input comment appears exactly once.
//
// Build copies every comment; the caller's slice is left untouched.
func Build(comments []model.Comment) []*model.Comment {
	nodes := make([]*model.Comment, len(comments))
	byID := make(map[string]*model.Comment, len(comments))

	// The whole lookup must exist before any parent is resolved, otherwise a
	// reply listed before its parent would be mistaken for an orphan.
	for i := range comments {
		node := comments[i]
		node.Replies = []*model.Comment{}
		nodes[i] = &node
		if _, dup := byID[node.ID]; !dup {
			byID[node.ID] = &node
		}
	}

	roots := make([]*model.Comment, 0, len(nodes))
	parentOf := make(map[*model.Comment]*model.Comment, len(nodes))
	for _, node := range nodes {
		parent, ok := byID[node.ParentID]
		if node.IsRoot() || !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
		parentOf[node] = parent
	}

	roots = promoteCycles(nodes, roots, parentOf)

	visited := make(map[*model.Comment]bool, len(nodes))
	for _, root := range roots {
		sortReplies(root, visited)
	}
	return roots
}

// promoteCycles finds nodes unreachable from any root, which only happens
// when parent references form a loop. For each loop the member listed first
// in the input is detached from its parent and becomes a root; everything
// hanging off the loop follows it.
func promoteCycles(nodes, roots []*model.Comment, parentOf map[*model.Comment]*model.Comment) []*model.Comment {
	reached := make(map[*model.Comment]bool, len(nodes))
	for _, root := range roots {
		mark(root, reached)
	}
	if len(reached) == len(nodes) {
		return roots
	}

	order := make(map[*model.Comment]int, len(nodes))
	for i, node := range nodes {
		order[node] = i
	}

	for _, node := range nodes {
		if reached[node] {
			continue
		}

		// Climb until a node repeats; that node sits on the loop.
		seen := make(map[*model.Comment]bool)
		onLoop := node
		for !seen[onLoop] {
			seen[onLoop] = true
			onLoop = parentOf[onLoop]
		}

		first := onLoop
		for n := parentOf[onLoop]; n != onLoop; n = parentOf[n] {
			if order[n] < order[first] {
				first = n
			}
		}

		parent := parentOf[first]
		parent.Replies = slices.DeleteFunc(parent.Replies, func(c *model.Comment) bool { return c == first })
		delete(parentOf, first)
		roots = append(roots, first)
		mark(first, reached)
	}
	return roots
}

func mark(node *model.Comment, reached map[*model.Comment]bool) {
	stack := []*model.Comment{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[n] {
			continue
		}
		reached[n] = true
		stack = append(stack, n.Replies...)
	}
}

// sortReplies orders replies oldest-first at every depth. Stable, so equal
// timestamps keep the input order.
func sortReplies(node *model.Comment, visited map[*model.Comment]bool) {
	if visited[node] {
		return
	}
	visited[node] = true

	if len(node.Replies) > 1 {
		slices.SortStableFunc(node.Replies, func(a, b *model.Comment) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}
	for _, reply := range node.Replies {
		sortReplies(reply, visited)
	}
}

// Count returns the number of comments in a forest.
func Count(roots []*model.Comment) int {
	n := 0
	Walk(roots, func(*model.Comment, int) { n++ })
	return n
}

// Walk visits every comment depth-first, parents before replies, passing the
// nesting depth (0 for roots).
func Walk(roots []*model.Comment, fn func(c *model.Comment, depth int)) {
	seen := make(map[*model.Comment]bool)
	var walk func(nodes []*model.Comment, depth int)
	walk = func(nodes []*model.Comment, depth int) {
		for _, n := range nodes {
			if seen[n] {
				continue
			}
			seen[n] = true
			fn(n, depth)
			walk(n.Replies, depth+1)
		}
	}
	walk(roots, 0)
}
