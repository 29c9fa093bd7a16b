package graph

import (
	"fmt"

	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// Graph exclusively owns a set of primitive nodes and the edges between
// them. Nodes are created once and never removed; the only structural
// mutation besides appending is SplitEdge, which rewires one existing
// connection in place.
type Graph struct {
	nodes      []*Node
	edges      []*Edge
	nextEdgeID EdgeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// Nodes returns all nodes in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns all live edges.
func (g *Graph) Edges() []*Edge { return g.edges }

// Node returns the node with the given handle.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

func (g *Graph) addNode(kind NodeKind, shape tensor.Shape, quant tensor.QuantizationInfo,
	format Format, sourceIDs []uint32) *Node {
	n := &Node{
		id:        NodeID(len(g.nodes)),
		kind:      kind,
		shape:     shape,
		quant:     quant,
		format:    format,
		sourceIDs: append([]uint32(nil), sourceIDs...),
	}
	g.nodes = append(g.nodes, n)
	return n
}

// AddInput creates an Input node whose layout is taken from the external
// descriptor.
func (g *Graph) AddInput(info tensor.Info, sourceIDs ...uint32) (*Node, error) {
	format, err := ExternalFormat(info.Format)
	if err != nil {
		return nil, err
	}
	return g.addNode(KindInput, info.Shape, info.Quantization, format, sourceIDs), nil
}

// AddOutput creates an Output node. The provenance IDs belong to the
// upstream producer, and producerOutputIndex records which of its outputs
// feeds this network output.
func (g *Graph) AddOutput(shape tensor.Shape, quant tensor.QuantizationInfo, format Format,
	producerOutputIndex int, sourceIDs ...uint32) *Node {
	n := g.addNode(KindOutput, shape, quant, format, sourceIDs)
	n.output = &OutputAttributes{ProducerOutputIndex: producerOutputIndex}
	return n
}

// AddConstant creates a Constant node carrying the payload verbatim.
func (g *Graph) AddConstant(info tensor.Info, data []byte, sourceIDs ...uint32) (*Node, error) {
	format, err := ExternalFormat(info.Format)
	if err != nil {
		return nil, err
	}
	n := g.addNode(KindConstant, info.Shape, info.Quantization, format, sourceIDs)
	n.constant = &ConstantAttributes{Info: info, Data: data}
	return n, nil
}

// AddMceOperation creates a multiply-accumulate engine node
// (convolution, depthwise convolution or fully connected).
func (g *Graph) AddMceOperation(attrs MceAttributes, outputShape tensor.Shape,
	outputQuant tensor.QuantizationInfo, format Format, sourceIDs ...uint32) *Node {
	n := g.addNode(KindMceOperation, outputShape, outputQuant, format, sourceIDs)
	a := attrs
	n.mce = &a
	return n
}

// AddMcePostProcess creates a post-processing clamp node.
func (g *Graph) AddMcePostProcess(shape tensor.Shape, quant tensor.QuantizationInfo,
	lower, upper int32, format Format, sourceIDs ...uint32) *Node {
	n := g.addNode(KindMcePostProcess, shape, quant, format, sourceIDs)
	n.postProcess = &PostProcessAttributes{LowerBound: lower, UpperBound: upper}
	return n
}

// AddFuseOnlyPle creates a PLE node that must be fused with a producer MCE
// pass. The shape multiplier tells the consumer stage how the kernel
// shrinks or grows its logical input.
func (g *Graph) AddFuseOnlyPle(shape tensor.Shape, quant tensor.QuantizationInfo,
	kernel PleKernel, multiplier ShapeMultiplier, format Format, sourceIDs ...uint32) *Node {
	n := g.addNode(KindFuseOnlyPle, shape, quant, format, sourceIDs)
	n.ple = &PleAttributes{Kernel: kernel, ShapeMultiplier: multiplier}
	return n
}

// AddStandalonePle creates a PLE node that runs as its own pass.
func (g *Graph) AddStandalonePle(shape tensor.Shape, quant tensor.QuantizationInfo,
	kernel PleKernel, format Format, sourceIDs ...uint32) *Node {
	n := g.addNode(KindStandalonePle, shape, quant, format, sourceIDs)
	n.ple = &PleAttributes{Kernel: kernel, ShapeMultiplier: IdentityShapeMultiplier}
	return n
}

// AddFormatConversion creates a layout conversion node.
func (g *Graph) AddFormatConversion(shape tensor.Shape, quant tensor.QuantizationInfo,
	format Format, sourceIDs ...uint32) *Node {
	return g.addNode(KindFormatConversion, shape, quant, format, sourceIDs)
}

// AddReinterpret creates a reinterpretation node: the declared shape changes
// without moving data.
func (g *Graph) AddReinterpret(shape tensor.Shape, quant tensor.QuantizationInfo,
	format Format, sourceIDs ...uint32) *Node {
	return g.addNode(KindReinterpret, shape, quant, format, sourceIDs)
}

// AddConcat creates a concatenation node. Input edge order matches the
// declaration order of the high-level inputs.
func (g *Graph) AddConcat(shape tensor.Shape, quant tensor.QuantizationInfo, axis int,
	format Format, sourceIDs ...uint32) *Node {
	n := g.addNode(KindConcat, shape, quant, format, sourceIDs)
	n.concat = &ConcatAttributes{Axis: axis}
	return n
}

// AddExtractSubtensor creates a subtensor extraction node at the given
// offset within its supertensor.
func (g *Graph) AddExtractSubtensor(offset, shape tensor.Shape, quant tensor.QuantizationInfo,
	format Format, sourceIDs ...uint32) *Node {
	n := g.addNode(KindExtractSubtensor, shape, quant, format, sourceIDs)
	n.subtensor = &SubtensorAttributes{Offset: offset}
	return n
}

// AddRequantize creates a requantization node.
func (g *Graph) AddRequantize(shape tensor.Shape, quant tensor.QuantizationInfo,
	format Format, sourceIDs ...uint32) *Node {
	return g.addNode(KindRequantize, shape, quant, format, sourceIDs)
}

// AddEstimateOnly creates a placeholder node with correct output metadata
// but no defined numeric lowering.
func (g *Graph) AddEstimateOnly(shape tensor.Shape, quant tensor.QuantizationInfo,
	format Format, sourceIDs ...uint32) *Node {
	return g.addNode(KindEstimateOnly, shape, quant, format, sourceIDs)
}

func (g *Graph) newEdge(producer, consumer *Node) *Edge {
	e := &Edge{id: g.nextEdgeID, producer: producer, consumer: consumer}
	g.nextEdgeID++
	g.edges = append(g.edges, e)
	return e
}

// Connect appends a directed edge from producer to consumer. Connection
// order is preserved: for multi-input nodes the input index is the order in
// which Connect was called.
func (g *Graph) Connect(producer, consumer *Node) *Edge {
	e := g.newEdge(producer, consumer)
	producer.outputs = append(producer.outputs, e)
	consumer.inputs = append(consumer.inputs, e)
	return e
}

func (g *Graph) removeEdge(e *Edge) {
	for i, cand := range g.edges {
		if cand == e {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return
		}
	}
}

func replaceEdge(edges []*Edge, old, new *Edge) bool {
	for i, e := range edges {
		if e == old {
			edges[i] = new
			return true
		}
	}
	return false
}

// SplitEdge inserts node between the endpoints of e, replacing A -> B with
// A -> node -> B. The new incoming edge takes the old edge's position in
// both endpoints' edge lists, so B's input index is preserved.
func (g *Graph) SplitEdge(e *Edge, node *Node) (*Edge, *Edge) {
	producer := e.producer
	consumer := e.consumer

	in := g.newEdge(producer, node)
	out := g.newEdge(node, consumer)

	if !replaceEdge(producer.outputs, e, in) {
		panic(fmt.Sprintf("graph: edge %d not found on producer %s", e.id, producer))
	}
	node.inputs = append(node.inputs, in)
	node.outputs = append(node.outputs, out)
	if !replaceEdge(consumer.inputs, e, out) {
		panic(fmt.Sprintf("graph: edge %d not found on consumer %s", e.id, consumer))
	}
	g.removeEdge(e)
	return in, out
}
