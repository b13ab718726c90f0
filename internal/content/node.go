// Package content turns raw documents into hierarchical content trees.
//
// A parsed document is a tree of Nodes mirroring the source structure:
// headings become tree levels, text blocks attach to the nearest section.
// Trees are transient — they are consumed once into the chunk store and
// discarded; the store is the durable artifact.
package content

import (
	"fmt"
	"strconv"
)

// Node is a node in a parsed document tree.
//
// The tree is acyclic and finite. The root carries the document title and
// source URI; leaf nodes carry the text payload.
type Node struct {
	// Title is the section heading (or document title at the root).
	Title string

	// ID is a source-relative identity, stable for a given document
	// structure (root "0", children "0.1", "0.1.2", ...).
	ID string

	// URI identifies the source document this node belongs to.
	URI string

	// Text is the raw text payload. May be empty on structural nodes.
	Text string

	// Children are ordered sub-sections.
	Children []*Node
}

// Descendants returns all nodes below n in document order. Each call
// produces a fresh slice, so the traversal is restartable.
func (n *Node) Descendants() []*Node {
	var out []*Node
	for _, c := range n.Children {
		out = append(out, c)
		out = append(out, c.Descendants()...)
	}
	return out
}

// ElementCount returns the number of nodes in the tree rooted at n,
// including n itself.
func (n *Node) ElementCount() int {
	count := 1
	for _, c := range n.Children {
		count += c.ElementCount()
	}
	return count
}

// assignIdentity walks the tree and fills in ID and URI for every node.
// IDs encode the position in the tree so repeated parses of an unchanged
// document yield the same identities.
func assignIdentity(root *Node, uri string) {
	root.URI = uri
	root.ID = "0"
	var walk func(n *Node)
	walk = func(n *Node) {
		for i, c := range n.Children {
			c.URI = uri
			c.ID = n.ID + "." + strconv.Itoa(i)
			walk(c)
		}
	}
	walk(root)
}

// String implements fmt.Stringer for log output.
func (n *Node) String() string {
	return fmt.Sprintf("Node{title=%q, children=%d}", n.Title, len(n.Children))
}
