package lowering

import (
	"github.com/pkg/errors"

	"github.com/robotseye/ethos-n-driver-stack/graph"
	"github.com/robotseye/ethos-n-driver-stack/network"
	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// concatSplitFormat decides between the compact and planar layouts for a
// concatenation or split. The compact layout requires every extent along the
// axis to be a multiple of the brick group size along that axis, otherwise
// the DMA cannot place the tensors correctly in DRAM.
func (c *Converter) concatSplitFormat(axis int, extents []int) graph.Format {
	for _, extent := range extents {
		if extent%c.caps.BrickGroupShape()[axis] != 0 {
			return graph.FormatNHWC
		}
	}
	return graph.FormatNHWCB
}

func (c *Converter) lowerConcatenation(op *network.Concatenation) error {
	inputs := op.Inputs()
	axis := op.ConcatenationInfo().Axis
	outInfo := op.Outputs()[0].TensorInfo()

	inputInfos := make([]tensor.Info, len(inputs))
	for i, in := range inputs {
		inputInfos[i] = in.TensorInfo()
	}
	level := c.queries.ConcatenationSupported(inputInfos, op.ConcatenationInfo())

	// Shared inputs to a concatenation are not lowerable. Estimation mode
	// tolerates them so the rest of the network can still be costed.
	for _, in := range inputs {
		if len(in.Consumers()) > 1 && !c.estimationMode {
			return &NotSupportedError{
				Reason: "inputs to concatenation cannot be connected to multiple operations",
			}
		}
	}

	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}

	extents := make([]int, len(inputs))
	for i, in := range inputs {
		extents[i] = in.TensorInfo().Shape[axis]
	}
	format := c.concatSplitFormat(axis, extents)

	n := c.graph.AddConcat(outInfo.Shape, op.ConcatenationInfo().OutputQuantization,
		axis, format, op.ID())
	if err := c.connectNode(op, n); err != nil {
		return err
	}

	// Inputs whose producer disagrees with the chosen layout get a
	// conversion spliced onto their specific edge. Collect first, splice
	// after, so the index-based inspection is not disturbed mid-walk.
	type splice struct {
		edge *graph.Edge
		node *graph.Node
	}
	var conversions []splice
	for i, in := range inputs {
		if n.InputFormat(i) != format {
			reformat := c.graph.AddFormatConversion(in.TensorInfo().Shape,
				in.TensorInfo().Quantization, format, op.ID())
			conversions = append(conversions, splice{edge: n.Input(i), node: reformat})
		}
	}
	for _, s := range conversions {
		c.graph.SplitEdge(s.edge, s.node)
	}

	// The concat primitive assumes one quantization for all inputs and the
	// output, so requantize any input that differs.
	var requantizes []splice
	for i, in := range inputs {
		if n.InputQuantization(i) != outInfo.Quantization {
			requant := c.graph.AddRequantize(in.TensorInfo().Shape, outInfo.Quantization,
				format, op.ID())
			requantizes = append(requantizes, splice{edge: n.Input(i), node: requant})
		}
	}
	for _, s := range requantizes {
		c.graph.SplitEdge(s.edge, s.node)
	}

	return nil
}

// lowerSplit has no shared-input restriction, unlike lowerConcatenation.
func (c *Converter) lowerSplit(op *network.Split) error {
	inInfo := op.Inputs()[0].TensorInfo()
	splitInfo := op.SplitInfo()
	outputs := op.Outputs()

	level := c.queries.SplitSupported(inInfo, splitInfo)
	if level == EstimateOnly {
		inputNode, ok := c.operandToNode[op.Inputs()[0]]
		if !ok {
			return errors.Wrap(ErrUnsupportedConfiguration, "input operand has not been lowered")
		}
		for _, out := range outputs {
			info := out.TensorInfo()
			n := c.graph.AddEstimateOnly(info.Shape, info.Quantization, graph.FormatNHWCB, op.ID())
			c.operandToNode[out] = n
			c.graph.Connect(inputNode, n)
		}
		return nil
	}

	extents := make([]int, len(outputs))
	for i, out := range outputs {
		extents[i] = out.TensorInfo().Shape[splitInfo.Axis]
	}
	format := c.concatSplitFormat(splitInfo.Axis, extents)

	inputNode, ok := c.operandToNode[op.Inputs()[0]]
	if !ok {
		return errors.Wrap(ErrUnsupportedConfiguration, "input operand has not been lowered")
	}
	if inputNode.Format() != format {
		conversion := c.graph.AddFormatConversion(inInfo.Shape, inInfo.Quantization, format, op.ID())
		c.graph.Connect(inputNode, conversion)
		inputNode = conversion
	}

	// One extraction per output, at a running offset along the split axis.
	var offset tensor.Shape
	for i, out := range outputs {
		shape := inInfo.Shape
		shape[splitInfo.Axis] = splitInfo.Sizes[i]
		n := c.graph.AddExtractSubtensor(offset, shape, inInfo.Quantization, format, op.ID())
		offset[splitInfo.Axis] += splitInfo.Sizes[i]

		c.graph.Connect(inputNode, n)
		c.operandToNode[out] = n
	}
	return nil
}
