package model

import (
	"fmt"
	"strings"
)

// Tree renders the hierarchy rooted at n as indented text, one entity per
// line. It walks the tree purely through the Node interface, so it works on
// any entity kind.
func Tree(n Node) string {
	var b strings.Builder
	writeNode(&b, n, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n Node, depth int) {
	fmt.Fprintf(b, "%s%d: %s\n", strings.Repeat("  ", depth), n.NodeID(), n.NodeName())
	for _, child := range n.Children() {
		writeNode(b, child, depth+1)
	}
}
