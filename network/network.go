package network

import "github.com/robotseye/ethos-n-driver-stack/tensor"

// Operand is the value produced by one output of an operation. Operands link
// producers to consumers and carry the tensor descriptor for the value.
type Operand struct {
	info                tensor.Info
	producer            Operation
	producerOutputIndex int
	consumers           []Operation
}

// TensorInfo returns the descriptor of the value.
func (o *Operand) TensorInfo() tensor.Info { return o.info }

// Producer returns the operation producing this operand.
func (o *Operand) Producer() Operation { return o.producer }

// ProducerOutputIndex returns which output of the producer this operand is.
func (o *Operand) ProducerOutputIndex() int { return o.producerOutputIndex }

// Consumers returns the operations consuming this operand, in the order they
// were added to the network.
func (o *Operand) Consumers() []Operation { return o.consumers }

// Operation is one node of the high-level graph. Concrete operation kinds
// are the exported structs in this package; lowering dispatches on the
// concrete type.
type Operation interface {
	// ID returns the stable numeric identifier threaded into every
	// primitive node derived from this operation.
	ID() uint32
	Inputs() []*Operand
	Outputs() []*Operand
}

// operation is the common embedded part of every concrete kind.
type operation struct {
	id      uint32
	inputs  []*Operand
	outputs []*Operand
}

func (o *operation) ID() uint32          { return o.id }
func (o *operation) Inputs() []*Operand  { return o.inputs }
func (o *operation) Outputs() []*Operand { return o.outputs }

// Network is an ordered list of operations. Insertion order is the
// dependency order the lowering driver relies on: every operand is produced
// by an operation added earlier.
type Network struct {
	ops    []Operation
	nextID uint32
}

// New creates an empty network.
func New() *Network {
	return &Network{}
}

// Operations returns the operations in dependency order.
func (n *Network) Operations() []Operation { return n.ops }

func (n *Network) register(op Operation, base *operation, inputs []*Operand, outputInfos []tensor.Info) {
	base.id = n.nextID
	n.nextID++
	base.inputs = inputs
	for _, in := range inputs {
		in.consumers = append(in.consumers, op)
	}
	base.outputs = make([]*Operand, len(outputInfos))
	for i, info := range outputInfos {
		base.outputs[i] = &Operand{info: info, producer: op, producerOutputIndex: i}
	}
	n.ops = append(n.ops, op)
}

// Input is an external network input.
type Input struct {
	operation
}

// AddInput declares an external input with the given descriptor.
func (n *Network) AddInput(info tensor.Info) *Input {
	op := &Input{}
	n.register(op, &op.operation, nil, []tensor.Info{info})
	return op
}

// Output is an external network output.
type Output struct {
	operation
	info tensor.Info
}

// TensorInfo returns the required external descriptor of the output.
func (o *Output) TensorInfo() tensor.Info { return o.info }

// AddOutput declares that an operand is an external output with the given
// required external descriptor.
func (n *Network) AddOutput(producer *Operand, info tensor.Info) *Output {
	op := &Output{info: info}
	n.register(op, &op.operation, []*Operand{producer}, nil)
	return op
}

// Constant is a literal tensor.
type Constant struct {
	operation
	data ConstantData
}

// Data returns the literal payload.
func (c *Constant) Data() ConstantData { return c.data }

// AddConstant declares a literal tensor.
func (n *Network) AddConstant(data ConstantData) *Constant {
	op := &Constant{data: data}
	n.register(op, &op.operation, nil, []tensor.Info{data.Info})
	return op
}

// Convolution is a regular convolution with weights and bias.
type Convolution struct {
	operation
	weights  ConstantData
	bias     BiasData
	convInfo ConvolutionInfo
}

func (c *Convolution) Weights() ConstantData           { return c.weights }
func (c *Convolution) Bias() BiasData                  { return c.bias }
func (c *Convolution) ConvolutionInfo() ConvolutionInfo { return c.convInfo }

// AddConvolution declares a convolution. The output descriptor is supplied
// by the caller; shape inference happens upstream.
func (n *Network) AddConvolution(input *Operand, weights ConstantData, bias BiasData,
	info ConvolutionInfo, output tensor.Info) *Convolution {
	op := &Convolution{weights: weights, bias: bias, convInfo: info}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// DepthwiseConvolution is a depthwise convolution with weights and bias.
type DepthwiseConvolution struct {
	operation
	weights  ConstantData
	bias     BiasData
	convInfo ConvolutionInfo
}

func (c *DepthwiseConvolution) Weights() ConstantData            { return c.weights }
func (c *DepthwiseConvolution) Bias() BiasData                   { return c.bias }
func (c *DepthwiseConvolution) ConvolutionInfo() ConvolutionInfo { return c.convInfo }

// AddDepthwiseConvolution declares a depthwise convolution.
func (n *Network) AddDepthwiseConvolution(input *Operand, weights ConstantData, bias BiasData,
	info ConvolutionInfo, output tensor.Info) *DepthwiseConvolution {
	op := &DepthwiseConvolution{weights: weights, bias: bias, convInfo: info}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// TransposeConvolution is a transpose (fractionally-strided) convolution.
// Its stride is the upscale factor and its padding crops the output.
type TransposeConvolution struct {
	operation
	weights  ConstantData
	bias     BiasData
	convInfo ConvolutionInfo
}

func (c *TransposeConvolution) Weights() ConstantData            { return c.weights }
func (c *TransposeConvolution) Bias() BiasData                   { return c.bias }
func (c *TransposeConvolution) ConvolutionInfo() ConvolutionInfo { return c.convInfo }

// AddTransposeConvolution declares a transpose convolution.
func (n *Network) AddTransposeConvolution(input *Operand, weights ConstantData, bias BiasData,
	info ConvolutionInfo, output tensor.Info) *TransposeConvolution {
	op := &TransposeConvolution{weights: weights, bias: bias, convInfo: info}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// FullyConnected is a fully-connected layer with weights and bias.
type FullyConnected struct {
	operation
	weights ConstantData
	bias    BiasData
}

func (c *FullyConnected) Weights() ConstantData { return c.weights }
func (c *FullyConnected) Bias() BiasData        { return c.bias }

// AddFullyConnected declares a fully-connected layer.
func (n *Network) AddFullyConnected(input *Operand, weights ConstantData, bias BiasData,
	output tensor.Info) *FullyConnected {
	op := &FullyConnected{weights: weights, bias: bias}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// Reshape reinterprets its input with a new shape.
type Reshape struct {
	operation
}

// AddReshape declares a reshape to the given output descriptor.
func (n *Network) AddReshape(input *Operand, output tensor.Info) *Reshape {
	op := &Reshape{}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// DepthToSpace rearranges channel blocks into spatial blocks.
type DepthToSpace struct {
	operation
	info DepthToSpaceInfo
}

func (d *DepthToSpace) DepthToSpaceInfo() DepthToSpaceInfo { return d.info }

// AddDepthToSpace declares a depth-to-space operation.
func (n *Network) AddDepthToSpace(input *Operand, info DepthToSpaceInfo, output tensor.Info) *DepthToSpace {
	op := &DepthToSpace{info: info}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// Pooling is a spatial pooling operation.
type Pooling struct {
	operation
	info PoolingInfo
}

func (p *Pooling) PoolingInfo() PoolingInfo { return p.info }

// AddPooling declares a pooling operation.
func (n *Network) AddPooling(input *Operand, info PoolingInfo, output tensor.Info) *Pooling {
	op := &Pooling{info: info}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// Sigmoid is a sigmoid activation.
type Sigmoid struct {
	operation
}

// AddSigmoid declares a sigmoid activation.
func (n *Network) AddSigmoid(input *Operand, output tensor.Info) *Sigmoid {
	op := &Sigmoid{}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// Softmax is a softmax activation.
type Softmax struct {
	operation
}

// AddSoftmax declares a softmax activation.
func (n *Network) AddSoftmax(input *Operand, output tensor.Info) *Softmax {
	op := &Softmax{}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// Relu clamps its input between two bounds.
type Relu struct {
	operation
	info ReluInfo
}

func (r *Relu) ReluInfo() ReluInfo { return r.info }

// AddRelu declares a relu clamp.
func (n *Network) AddRelu(input *Operand, info ReluInfo, output tensor.Info) *Relu {
	op := &Relu{info: info}
	n.register(op, &op.operation, []*Operand{input}, []tensor.Info{output})
	return op
}

// Addition is an elementwise addition of two operands.
type Addition struct {
	operation
}

// AddAddition declares an elementwise addition.
func (n *Network) AddAddition(lhs, rhs *Operand, output tensor.Info) *Addition {
	op := &Addition{}
	n.register(op, &op.operation, []*Operand{lhs, rhs}, []tensor.Info{output})
	return op
}

// Concatenation joins operands along one axis.
type Concatenation struct {
	operation
	info ConcatenationInfo
}

func (c *Concatenation) ConcatenationInfo() ConcatenationInfo { return c.info }

// AddConcatenation declares a concatenation. Input order is significant and
// preserved through lowering.
func (n *Network) AddConcatenation(inputs []*Operand, info ConcatenationInfo, output tensor.Info) *Concatenation {
	op := &Concatenation{info: info}
	n.register(op, &op.operation, inputs, []tensor.Info{output})
	return op
}

// Split slices its input into pieces along one axis.
type Split struct {
	operation
	info SplitInfo
}

func (s *Split) SplitInfo() SplitInfo { return s.info }

// AddSplit declares a split with one output per declared size.
func (n *Network) AddSplit(input *Operand, info SplitInfo, outputs []tensor.Info) *Split {
	op := &Split{info: info}
	n.register(op, &op.operation, []*Operand{input}, outputs)
	return op
}

// EstimateOnly is an explicit placeholder operation, used to keep a network
// estimatable when it contains functionality the hardware cannot run.
type EstimateOnly struct {
	operation
	reason string
}

// Reason returns the free-form explanation recorded when the operation was
// declared.
func (e *EstimateOnly) Reason() string { return e.reason }

// AddEstimateOnly declares an estimate-only passthrough over arbitrary
// inputs and outputs.
func (n *Network) AddEstimateOnly(inputs []*Operand, outputs []tensor.Info, reason string) *EstimateOnly {
	op := &EstimateOnly{reason: reason}
	n.register(op, &op.operation, inputs, outputs)
	return op
}
