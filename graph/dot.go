package graph

import (
	"fmt"
	"io"
	"strings"
)

// WriteDot writes the graph in Graphviz DOT syntax, one record per node with
// its kind, shape and layout. Intended for debugging lowering results.
func (g *Graph) WriteDot(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	b.WriteString("\trankdir=TB;\n")
	b.WriteString("\tnode [shape=box, style=rounded];\n\n")

	for _, n := range g.nodes {
		label := fmt.Sprintf("%s#%d\\n%s %s", n.kind, n.id, n.shape, n.format)
		if n.kind == KindMceOperation {
			label += fmt.Sprintf("\\n%s", n.mce.Operation)
		}
		if n.ple != nil {
			label += fmt.Sprintf("\\n%s", n.ple.Kernel)
		}
		fmt.Fprintf(&b, "\tn%d [label=\"%s\"];\n", n.id, label)
	}
	b.WriteString("\n")
	for _, e := range g.edges {
		fmt.Fprintf(&b, "\tn%d -> n%d;\n", e.producer.id, e.consumer.id)
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
