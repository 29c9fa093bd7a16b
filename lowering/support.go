package lowering

import (
	"github.com/robotseye/ethos-n-driver-stack/network"
	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// SupportedLevel classifies how far an operation can be taken through
// compilation.
type SupportedLevel int

const (
	// Supported operations lower to real primitives.
	Supported SupportedLevel = iota
	// EstimateOnly operations lower to placeholder nodes with correct
	// output metadata but no defined numeric behavior.
	EstimateOnly
	// Unsupported operations never reach the lowering stage; the
	// classification exists so implementations can express the full verdict.
	Unsupported
)

func (s SupportedLevel) String() string {
	switch s {
	case Supported:
		return "Supported"
	case EstimateOnly:
		return "EstimateOnly"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// SupportQueries is the feasibility classifier consulted before lowering
// each classifiable operation kind. Implementations live with the hardware
// support database upstream; the lowering stage only trusts the verdicts.
type SupportQueries interface {
	ConvolutionSupported(bias, weights tensor.Info, info network.ConvolutionInfo, input tensor.Info) SupportedLevel
	DepthwiseConvolutionSupported(bias, weights tensor.Info, info network.ConvolutionInfo, input tensor.Info) SupportedLevel
	TransposeConvolutionSupported(bias, weights tensor.Info, info network.ConvolutionInfo, input tensor.Info) SupportedLevel
	PoolingSupported(info network.PoolingInfo, input tensor.Info) SupportedLevel
	SoftmaxSupported(input tensor.Info) SupportedLevel
	AdditionSupported(input0, input1 tensor.Info, outputQuant tensor.QuantizationInfo) SupportedLevel
	ConcatenationSupported(inputs []tensor.Info, info network.ConcatenationInfo) SupportedLevel
	SplitSupported(input tensor.Info, info network.SplitInfo) SupportedLevel
}
