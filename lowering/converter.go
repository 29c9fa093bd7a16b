// Package lowering translates a high-level operation graph into the
// primitive execution graph. One lowering rule exists per operation kind;
// the converter dispatches each operation in dependency order, resolves the
// nodes already producing its inputs, and stitches the rule's node chain
// into the growing graph.
package lowering

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robotseye/ethos-n-driver-stack/graph"
	"github.com/robotseye/ethos-n-driver-stack/hw"
	"github.com/robotseye/ethos-n-driver-stack/network"
)

// Options configures a Converter.
type Options struct {
	// EstimationMode relaxes the concatenation shared-input restriction so
	// that otherwise-rejected networks can still be cost-estimated.
	EstimationMode bool
	// Logger receives per-operation progress at debug level. Nil means
	// discard.
	Logger *logrus.Entry
}

// Converter lowers one network into one primitive graph. It is
// single-threaded and not reusable across concurrent compilations; each
// Convert call produces a fresh graph.
type Converter struct {
	graph          *graph.Graph
	caps           *hw.Capabilities
	queries        SupportQueries
	estimationMode bool
	operandToNode  map[*network.Operand]*graph.Node
	log            *logrus.Entry
}

// NewConverter creates a converter over the given hardware capabilities and
// feasibility classifier.
func NewConverter(caps *hw.Capabilities, queries SupportQueries, opts Options) (*Converter, error) {
	if caps == nil {
		return nil, errors.New("lowering: capabilities must not be nil")
	}
	if queries == nil {
		return nil, errors.New("lowering: support queries must not be nil")
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Converter{
		caps:           caps,
		queries:        queries,
		estimationMode: opts.EstimationMode,
		log:            log,
	}, nil
}

// Convert lowers the network and returns the completed primitive graph.
// Operations must be in dependency order: every operand is produced by an
// operation appearing earlier, which network.Network guarantees by
// construction.
func (c *Converter) Convert(net *network.Network) (*graph.Graph, error) {
	c.graph = graph.New()
	c.operandToNode = make(map[*network.Operand]*graph.Node)

	for _, op := range net.Operations() {
		c.log.WithFields(logrus.Fields{"op": opName(op), "id": op.ID()}).Debug("lowering operation")
		if err := c.lower(op); err != nil {
			return nil, errors.Wrapf(err, "lowering %s (id %d)", opName(op), op.ID())
		}
	}
	return c.graph, nil
}

func (c *Converter) lower(op network.Operation) error {
	switch o := op.(type) {
	case *network.Input:
		return c.lowerInput(o)
	case *network.Output:
		return c.lowerOutput(o)
	case *network.Constant:
		return c.lowerConstant(o)
	case *network.Convolution:
		return c.lowerConvolution(o)
	case *network.DepthwiseConvolution:
		return c.lowerDepthwiseConvolution(o)
	case *network.TransposeConvolution:
		return c.lowerTransposeConvolution(o)
	case *network.FullyConnected:
		return c.lowerFullyConnected(o)
	case *network.Reshape:
		return c.lowerReshape(o)
	case *network.DepthToSpace:
		return c.lowerDepthToSpace(o)
	case *network.Pooling:
		return c.lowerPooling(o)
	case *network.Sigmoid:
		return c.lowerSigmoid(o)
	case *network.Softmax:
		return c.lowerSoftmax(o)
	case *network.Relu:
		return c.lowerRelu(o)
	case *network.Addition:
		return c.lowerAddition(o)
	case *network.Concatenation:
		return c.lowerConcatenation(o)
	case *network.Split:
		return c.lowerSplit(o)
	case *network.EstimateOnly:
		return c.lowerEstimateOnly(o)
	default:
		return errors.Wrapf(ErrUnsupportedConfiguration, "unknown operation kind %T", op)
	}
}

func opName(op network.Operation) string {
	switch op.(type) {
	case *network.Input:
		return "Input"
	case *network.Output:
		return "Output"
	case *network.Constant:
		return "Constant"
	case *network.Convolution:
		return "Convolution"
	case *network.DepthwiseConvolution:
		return "DepthwiseConvolution"
	case *network.TransposeConvolution:
		return "TransposeConvolution"
	case *network.FullyConnected:
		return "FullyConnected"
	case *network.Reshape:
		return "Reshape"
	case *network.DepthToSpace:
		return "DepthToSpace"
	case *network.Pooling:
		return "Pooling"
	case *network.Sigmoid:
		return "Sigmoid"
	case *network.Softmax:
		return "Softmax"
	case *network.Relu:
		return "Relu"
	case *network.Addition:
		return "Addition"
	case *network.Concatenation:
		return "Concatenation"
	case *network.Split:
		return "Split"
	case *network.EstimateOnly:
		return "EstimateOnly"
	default:
		return "Unknown"
	}
}

// connectNode wires a single-node chain.
func (c *Converter) connectNode(op network.Operation, n *graph.Node) error {
	return c.connectNodeChain(op, []*graph.Node{n})
}

// connectNodeChain wires the internal edges of a freshly created node chain,
// connects every declared input of the operation to the chain's head, and
// records the chain's tail as the producer of the operation's output.
// Operations with more than one output manage their own bindings and must
// not come through here.
func (c *Converter) connectNodeChain(op network.Operation, nodes []*graph.Node) error {
	if len(op.Outputs()) > 1 {
		return errors.Wrapf(ErrUnsupportedConfiguration,
			"node chain wiring cannot bind %d outputs", len(op.Outputs()))
	}
	for i := 0; i+1 < len(nodes); i++ {
		c.graph.Connect(nodes[i], nodes[i+1])
	}
	for _, in := range op.Inputs() {
		producer, ok := c.operandToNode[in]
		if !ok {
			return errors.Wrap(ErrUnsupportedConfiguration, "input operand has not been lowered")
		}
		c.graph.Connect(producer, nodes[0])
	}
	if len(op.Outputs()) == 1 {
		c.operandToNode[op.Outputs()[0]] = nodes[len(nodes)-1]
	}
	return nil
}

// estimateOnlyNode logs the downgrade and creates one placeholder node sized
// to the operation's single output.
func (c *Converter) estimateOnlyNode(op network.Operation) *graph.Node {
	c.log.WithFields(logrus.Fields{"op": opName(op), "id": op.ID()}).Info("lowered as estimate-only")
	info := op.Outputs()[0].TensorInfo()
	return c.graph.AddEstimateOnly(info.Shape, info.Quantization, graph.FormatNHWCB, op.ID())
}

func (c *Converter) lowerInput(op *network.Input) error {
	info := op.Outputs()[0].TensorInfo()
	n, err := c.graph.AddInput(info, op.ID())
	if err != nil {
		return err
	}
	nodes := []*graph.Node{n}

	// Operations work best on the compact layout, so convert straight away
	// if the external layout differs.
	if n.Format() != graph.FormatNHWCB {
		conv := c.graph.AddFormatConversion(info.Shape, info.Quantization, graph.FormatNHWCB, op.ID())
		nodes = append(nodes, conv)
	}
	return c.connectNodeChain(op, nodes)
}

func (c *Converter) lowerOutput(op *network.Output) error {
	var nodes []*graph.Node

	required, err := graph.ExternalFormat(op.TensorInfo().Format)
	if err != nil {
		return err
	}

	in := op.Inputs()[0]
	producerID := in.Producer().ID()
	if c.operandToNode[in].Format() != required {
		conv := c.graph.AddFormatConversion(op.TensorInfo().Shape, op.TensorInfo().Quantization,
			required, producerID)
		nodes = append(nodes, conv)
	}

	// The output node carries the upstream producer's ID, not its own.
	// Network outputs are identified by what feeds them when the graph gets
	// partitioned downstream.
	out := c.graph.AddOutput(op.TensorInfo().Shape, op.TensorInfo().Quantization, required,
		in.ProducerOutputIndex(), producerID)
	nodes = append(nodes, out)

	return c.connectNodeChain(op, nodes)
}

func (c *Converter) lowerConstant(op *network.Constant) error {
	n, err := c.graph.AddConstant(op.Data().Info, op.Data().Data, op.ID())
	if err != nil {
		return err
	}
	return c.connectNode(op, n)
}

func (c *Converter) lowerReshape(op *network.Reshape) error {
	var nodes []*graph.Node
	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()

	// Reinterpretation is only a no-op in the planar layout, so convert to
	// NHWC if necessary, reinterpret, then convert back.
	if c.operandToNode[op.Inputs()[0]].Format() != graph.FormatNHWC {
		nodes = append(nodes, c.graph.AddFormatConversion(inInfo.Shape, inInfo.Quantization,
			graph.FormatNHWC, op.ID()))
	}
	nodes = append(nodes, c.graph.AddReinterpret(outInfo.Shape, outInfo.Quantization,
		graph.FormatNHWC, op.ID()))
	nodes = append(nodes, c.graph.AddFormatConversion(outInfo.Shape, outInfo.Quantization,
		graph.FormatNHWCB, op.ID()))

	return c.connectNodeChain(op, nodes)
}

func (c *Converter) lowerSigmoid(op *network.Sigmoid) error {
	outInfo := op.Outputs()[0].TensorInfo()
	n := c.graph.AddFuseOnlyPle(outInfo.Shape, outInfo.Quantization, graph.PleSigmoid,
		graph.IdentityShapeMultiplier, graph.FormatNHWCB, op.ID())
	return c.connectNode(op, n)
}

func (c *Converter) lowerSoftmax(op *network.Softmax) error {
	level := c.queries.SoftmaxSupported(op.Inputs()[0].TensorInfo())
	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}
	return errors.Wrap(ErrUnsupportedConfiguration, "softmax has no supported lowering")
}

func (c *Converter) lowerRelu(op *network.Relu) error {
	outInfo := op.Outputs()[0].TensorInfo()
	n := c.graph.AddMcePostProcess(outInfo.Shape, outInfo.Quantization,
		op.ReluInfo().LowerBound, op.ReluInfo().UpperBound, graph.FormatNHWCB, op.ID())
	return c.connectNode(op, n)
}

func (c *Converter) lowerAddition(op *network.Addition) error {
	in0 := op.Inputs()[0].TensorInfo()
	in1 := op.Inputs()[1].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()

	level := c.queries.AdditionSupported(in0, in1, outInfo.Quantization)
	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}

	// The non-rescaling kernel applies only when both inputs and the output
	// share one quantization.
	kernel := graph.PleAdditionRescale
	if in0.Quantization == in1.Quantization && in0.Quantization == outInfo.Quantization {
		kernel = graph.PleAddition
	}

	n := c.graph.AddStandalonePle(outInfo.Shape, outInfo.Quantization, kernel,
		graph.FormatNHWCB, op.ID())
	return c.connectNode(op, n)
}

func (c *Converter) lowerPooling(op *network.Pooling) error {
	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()
	info := op.PoolingInfo()

	level := c.queries.PoolingSupported(info, inInfo)
	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}

	fuseOnly := func(kernel graph.PleKernel) *graph.Node {
		multiplier := graph.ShapeMultiplier{
			H: graph.Fraction{Num: 1, Denom: info.StrideY},
			W: graph.Fraction{Num: 1, Denom: info.StrideX},
			C: graph.Fraction{Num: 1, Denom: 1},
		}
		return c.graph.AddFuseOnlyPle(outInfo.Shape, outInfo.Quantization, kernel,
			multiplier, graph.FormatNHWCB, op.ID())
	}

	meanOfWholeInput := network.PoolingInfo{
		SizeX:   inInfo.Shape.Width(),
		SizeY:   inInfo.Shape.Height(),
		StrideX: info.StrideX,
		StrideY: info.StrideY,
		Type:    network.PoolingAvg,
	}

	var n *graph.Node
	switch {
	case info == meanOfWholeInput:
		n = fuseOnly(graph.PleMeanXY)
	case info == network.PoolingInfo{SizeX: 3, SizeY: 3, StrideX: 1, StrideY: 1, Padding: info.Padding, Type: network.PoolingAvg}:
		n = c.graph.AddStandalonePle(outInfo.Shape, outInfo.Quantization,
			graph.PleAvgPool3x3_1_1, graph.FormatNHWCB, op.ID())
	case info == network.PoolingInfo{SizeX: 2, SizeY: 2, StrideX: 2, StrideY: 2, Padding: info.Padding, Type: network.PoolingMax}:
		n = fuseOnly(graph.PleMaxPool2x2_2_2)
	case info == network.PoolingInfo{SizeX: 3, SizeY: 3, StrideX: 2, StrideY: 2, Padding: info.Padding, Type: network.PoolingMax}:
		n = fuseOnly(graph.PleMaxPool3x3_2_2)
	default:
		return errors.Wrapf(ErrUnsupportedConfiguration,
			"no hardware kernel for %s pooling %dx%d stride %dx%d",
			info.Type, info.SizeX, info.SizeY, info.StrideX, info.StrideY)
	}

	return c.connectNode(op, n)
}

func (c *Converter) lowerEstimateOnly(op *network.EstimateOnly) error {
	// There is no primary input/output pairing: every output node is fed by
	// every input.
	for _, out := range op.Outputs() {
		info := out.TensorInfo()
		n := c.graph.AddEstimateOnly(info.Shape, info.Quantization, graph.FormatNHWCB, op.ID())
		c.operandToNode[out] = n
		for _, in := range op.Inputs() {
			producer, ok := c.operandToNode[in]
			if !ok {
				return errors.Wrap(ErrUnsupportedConfiguration, "input operand has not been lowered")
			}
			c.graph.Connect(producer, n)
		}
	}
	return nil
}
