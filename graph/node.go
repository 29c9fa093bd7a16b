// Package graph holds the primitive execution graph produced by lowering.
// Nodes correspond 1:1 to operations the NPU can execute and live in an
// append-only arena owned by one Graph; edges are directed data-flow links.
// Nothing is ever freed before the whole lowering pass completes, so plain
// integer handles identify nodes and edges.
package graph

import (
	"fmt"

	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// Format is the compiler-internal data layout of a node's output.
type Format int

const (
	// FormatNHWC is the generic planar, channel-last layout.
	FormatNHWC Format = iota
	// FormatNHWCB is the hardware's compact brick layout.
	FormatNHWCB
)

func (f Format) String() string {
	switch f {
	case FormatNHWC:
		return "NHWC"
	case FormatNHWCB:
		return "NHWCB"
	default:
		return "Unknown"
	}
}

// ExternalFormat maps an external tensor data format to the compiler layout.
// Weight formats have no compiler layout and are rejected.
func ExternalFormat(f tensor.DataFormat) (Format, error) {
	switch f {
	case tensor.NHWC:
		return FormatNHWC, nil
	case tensor.NHWCB:
		return FormatNHWCB, nil
	default:
		return FormatNHWC, fmt.Errorf("data format %s has no compiler layout", f)
	}
}

// NodeKind discriminates the primitive node variants.
type NodeKind int

const (
	KindInput NodeKind = iota
	KindOutput
	KindConstant
	KindMceOperation
	KindMcePostProcess
	KindFuseOnlyPle
	KindStandalonePle
	KindFormatConversion
	KindReinterpret
	KindConcat
	KindExtractSubtensor
	KindRequantize
	KindEstimateOnly
)

func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindOutput:
		return "Output"
	case KindConstant:
		return "Constant"
	case KindMceOperation:
		return "MceOperation"
	case KindMcePostProcess:
		return "McePostProcess"
	case KindFuseOnlyPle:
		return "FuseOnlyPle"
	case KindStandalonePle:
		return "StandalonePle"
	case KindFormatConversion:
		return "FormatConversion"
	case KindReinterpret:
		return "Reinterpret"
	case KindConcat:
		return "Concat"
	case KindExtractSubtensor:
		return "ExtractSubtensor"
	case KindRequantize:
		return "Requantize"
	case KindEstimateOnly:
		return "EstimateOnly"
	default:
		return "Unknown"
	}
}

// MceOperationType selects the MCE configuration of an MceOperation node.
type MceOperationType int

const (
	MceConvolution MceOperationType = iota
	MceDepthwiseConvolution
	MceFullyConnected
)

func (m MceOperationType) String() string {
	switch m {
	case MceConvolution:
		return "Convolution"
	case MceDepthwiseConvolution:
		return "DepthwiseConvolution"
	case MceFullyConnected:
		return "FullyConnected"
	default:
		return "Unknown"
	}
}

// PleKernel selects the microkernel of a PLE node.
type PleKernel int

const (
	PleMeanXY PleKernel = iota
	PleAvgPool3x3_1_1
	PleMaxPool2x2_2_2
	PleMaxPool3x3_2_2
	PleInterleave2x2_2_2
	PleSigmoid
	PleAddition
	PleAdditionRescale
)

func (p PleKernel) String() string {
	switch p {
	case PleMeanXY:
		return "MeanXY"
	case PleAvgPool3x3_1_1:
		return "AvgPool3x3_1_1"
	case PleMaxPool2x2_2_2:
		return "MaxPool2x2_2_2"
	case PleMaxPool3x3_2_2:
		return "MaxPool3x3_2_2"
	case PleInterleave2x2_2_2:
		return "Interleave2x2_2_2"
	case PleSigmoid:
		return "Sigmoid"
	case PleAddition:
		return "Addition"
	case PleAdditionRescale:
		return "AdditionRescale"
	default:
		return "Unknown"
	}
}

// Fraction is an exact rational factor.
type Fraction struct {
	Num   int
	Denom int
}

// Apply scales a dimension by the fraction.
func (f Fraction) Apply(value int) int {
	return value * f.Num / f.Denom
}

// ShapeMultiplier describes how a fuse-only PLE kernel's output extent
// relates to its logical input extent, per dimension.
type ShapeMultiplier struct {
	H Fraction
	W Fraction
	C Fraction
}

// IdentityShapeMultiplier leaves all dimensions unchanged.
var IdentityShapeMultiplier = ShapeMultiplier{
	H: Fraction{1, 1},
	W: Fraction{1, 1},
	C: Fraction{1, 1},
}

// MceAttributes configures an MceOperation node.
type MceAttributes struct {
	InputShape    tensor.Shape
	WeightsInfo   tensor.Info
	WeightsData   []byte
	BiasInfo      tensor.Info
	BiasData      []int32
	StrideX       int
	StrideY       int
	UpscaleFactor int
	PadTop        int
	PadLeft       int
	Operation     MceOperationType
}

// PleAttributes configures a PLE node. ShapeMultiplier is meaningful for
// fuse-only kernels only; standalone kernels carry the identity.
type PleAttributes struct {
	Kernel          PleKernel
	ShapeMultiplier ShapeMultiplier
}

// PostProcessAttributes carries the clamp bounds of an McePostProcess node.
type PostProcessAttributes struct {
	LowerBound int32
	UpperBound int32
}

// ConstantAttributes carries a literal payload.
type ConstantAttributes struct {
	Info tensor.Info
	Data []byte
}

// ConcatAttributes carries the concatenation axis.
type ConcatAttributes struct {
	Axis int
}

// SubtensorAttributes carries the offset of an extracted subtensor within
// its supertensor.
type SubtensorAttributes struct {
	Offset tensor.Shape
}

// OutputAttributes records which output of the upstream producer the
// network output corresponds to. Outputs are identified by what feeds them,
// not by a node identity of their own.
type OutputAttributes struct {
	ProducerOutputIndex int
}

// NodeID is the stable handle of a node within its graph.
type NodeID int

// Node is one primitive operation. All nodes carry output shape,
// quantization, layout and the set of high-level operation IDs they were
// derived from; kind-specific attributes hang off the corresponding pointer
// field.
type Node struct {
	id        NodeID
	kind      NodeKind
	shape     tensor.Shape
	quant     tensor.QuantizationInfo
	format    Format
	sourceIDs []uint32

	inputs  []*Edge
	outputs []*Edge

	mce         *MceAttributes
	ple         *PleAttributes
	postProcess *PostProcessAttributes
	constant    *ConstantAttributes
	concat      *ConcatAttributes
	subtensor   *SubtensorAttributes
	output      *OutputAttributes
}

func (n *Node) ID() NodeID                            { return n.id }
func (n *Node) Kind() NodeKind                        { return n.kind }
func (n *Node) Shape() tensor.Shape                   { return n.shape }
func (n *Node) Quantization() tensor.QuantizationInfo { return n.quant }
func (n *Node) Format() Format                        { return n.format }

// SourceOperationIDs returns the high-level operation identifiers this node
// was derived from, for provenance.
func (n *Node) SourceOperationIDs() []uint32 { return n.sourceIDs }

// Inputs returns the input edges in connection order. The order matches the
// declaration order of the originating operation's inputs.
func (n *Node) Inputs() []*Edge { return n.inputs }

// Input returns the i-th input edge.
func (n *Node) Input(i int) *Edge { return n.inputs[i] }

// Outputs returns the outgoing edges in connection order.
func (n *Node) Outputs() []*Edge { return n.outputs }

// InputFormat returns the output layout of the node currently producing
// input i.
func (n *Node) InputFormat(i int) Format {
	return n.inputs[i].producer.format
}

// InputQuantization returns the output quantization of the node currently
// producing input i.
func (n *Node) InputQuantization(i int) tensor.QuantizationInfo {
	return n.inputs[i].producer.quant
}

func (n *Node) Mce() *MceAttributes                 { return n.mce }
func (n *Node) Ple() *PleAttributes                 { return n.ple }
func (n *Node) PostProcess() *PostProcessAttributes { return n.postProcess }
func (n *Node) Constant() *ConstantAttributes       { return n.constant }
func (n *Node) Concat() *ConcatAttributes           { return n.concat }
func (n *Node) Subtensor() *SubtensorAttributes     { return n.subtensor }
func (n *Node) Output() *OutputAttributes           { return n.output }

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d(%s %s)", n.kind, n.id, n.shape, n.format)
}

// EdgeID is the stable handle of an edge within its graph.
type EdgeID int

// Edge is a directed data-flow link between two nodes.
type Edge struct {
	id       EdgeID
	producer *Node
	consumer *Node
}

func (e *Edge) ID() EdgeID      { return e.id }
func (e *Edge) Producer() *Node { return e.producer }
func (e *Edge) Consumer() *Node { return e.consumer }
