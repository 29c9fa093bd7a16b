package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

func quant() tensor.QuantizationInfo {
	return tensor.QuantizationInfo{ZeroPoint: 0, Scale: 1.0}
}

func TestExternalFormat(t *testing.T) {
	f, err := ExternalFormat(tensor.NHWC)
	require.NoError(t, err)
	assert.Equal(t, FormatNHWC, f)

	f, err = ExternalFormat(tensor.NHWCB)
	require.NoError(t, err)
	assert.Equal(t, FormatNHWCB, f)

	_, err = ExternalFormat(tensor.HWIO)
	assert.Error(t, err)
	_, err = ExternalFormat(tensor.HWIM)
	assert.Error(t, err)
}

func TestAddInputRejectsWeightFormats(t *testing.T) {
	g := New()
	_, err := g.AddInput(tensor.Info{
		Shape:        tensor.Shape{1, 4, 4, 8},
		Format:       tensor.HWIO,
		Quantization: quant(),
	}, 0)
	assert.Error(t, err)
}

func TestNodeIDsAreStableHandles(t *testing.T) {
	g := New()
	shape := tensor.Shape{1, 8, 8, 16}

	a := g.AddFormatConversion(shape, quant(), FormatNHWCB, 1)
	b := g.AddReinterpret(shape, quant(), FormatNHWC, 2)

	assert.Equal(t, NodeID(0), a.ID())
	assert.Equal(t, NodeID(1), b.ID())
	assert.Same(t, a, g.Node(a.ID()))
	assert.Same(t, b, g.Node(b.ID()))
	assert.Len(t, g.Nodes(), 2)
}

func TestConnectPreservesOrder(t *testing.T) {
	g := New()
	shape := tensor.Shape{1, 8, 8, 16}

	in0 := g.AddFormatConversion(shape, quant(), FormatNHWCB, 1)
	in1 := g.AddFormatConversion(shape, quant(), FormatNHWCB, 2)
	in2 := g.AddFormatConversion(shape, quant(), FormatNHWCB, 3)
	concat := g.AddConcat(tensor.Shape{1, 8, 8, 48}, quant(), 3, FormatNHWCB, 4)

	g.Connect(in0, concat)
	g.Connect(in1, concat)
	g.Connect(in2, concat)

	require.Len(t, concat.Inputs(), 3)
	assert.Same(t, in0, concat.Input(0).Producer())
	assert.Same(t, in1, concat.Input(1).Producer())
	assert.Same(t, in2, concat.Input(2).Producer())
	assert.Len(t, g.Edges(), 3)
}

func TestSplitEdgePreservesInputIndex(t *testing.T) {
	g := New()
	shape := tensor.Shape{1, 8, 8, 16}

	in0 := g.AddFormatConversion(shape, quant(), FormatNHWCB, 1)
	in1 := g.AddFormatConversion(shape, quant(), FormatNHWCB, 2)
	concat := g.AddConcat(tensor.Shape{1, 8, 8, 32}, quant(), 3, FormatNHWCB, 3)

	g.Connect(in0, concat)
	edge := g.Connect(in1, concat)

	mid := g.AddRequantize(shape, quant(), FormatNHWCB, 3)
	inEdge, outEdge := g.SplitEdge(edge, mid)

	// The second input slot now comes from the inserted node; the first is
	// untouched.
	require.Len(t, concat.Inputs(), 2)
	assert.Same(t, in0, concat.Input(0).Producer())
	assert.Same(t, mid, concat.Input(1).Producer())

	// The inserted node sits between the original endpoints.
	require.Len(t, mid.Inputs(), 1)
	require.Len(t, mid.Outputs(), 1)
	assert.Same(t, in1, mid.Input(0).Producer())
	assert.Same(t, concat, mid.Outputs()[0].Consumer())
	assert.Same(t, inEdge, in1.Outputs()[0])
	assert.Same(t, outEdge, concat.Input(1))

	// The original edge is gone from the graph's edge list.
	for _, e := range g.Edges() {
		assert.NotSame(t, edge, e)
	}
	assert.Len(t, g.Edges(), 3)
}

func TestInputFormatAndQuantizationFollowProducer(t *testing.T) {
	g := New()
	shape := tensor.Shape{1, 8, 8, 16}
	q := tensor.QuantizationInfo{ZeroPoint: 3, Scale: 0.5}

	producer := g.AddFormatConversion(shape, q, FormatNHWC, 1)
	concat := g.AddConcat(shape, quant(), 3, FormatNHWCB, 2)
	g.Connect(producer, concat)

	assert.Equal(t, FormatNHWC, concat.InputFormat(0))
	assert.Equal(t, q, concat.InputQuantization(0))

	// After splicing a conversion onto the edge, the reported input format
	// follows the new producer.
	conv := g.AddFormatConversion(shape, q, FormatNHWCB, 2)
	g.SplitEdge(concat.Input(0), conv)
	assert.Equal(t, FormatNHWCB, concat.InputFormat(0))
}

func TestWriteDot(t *testing.T) {
	g := New()
	shape := tensor.Shape{1, 8, 8, 16}

	a, err := g.AddInput(tensor.Info{Shape: shape, Format: tensor.NHWC, Quantization: quant()}, 0)
	require.NoError(t, err)
	b := g.AddFormatConversion(shape, quant(), FormatNHWCB, 0)
	g.Connect(a, b)

	var sb strings.Builder
	require.NoError(t, g.WriteDot(&sb))
	out := sb.String()

	assert.Contains(t, out, "digraph G {")
	assert.Contains(t, out, "Input#0")
	assert.Contains(t, out, "FormatConversion#1")
	assert.Contains(t, out, "n0 -> n1;")
}
