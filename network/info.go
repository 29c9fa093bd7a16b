// Package network models the high-level operation graph consumed by the
// lowering stage. Operations are plain data: kind-specific descriptor
// structs plus ordered operand links. The package performs no shape
// inference and no validation beyond wiring; building well-formed networks
// is the concern of the user-facing construction API upstream.
package network

import "github.com/robotseye/ethos-n-driver-stack/tensor"

// Stride holds per-axis convolution strides.
type Stride struct {
	X int
	Y int
}

// Padding holds spatial padding amounts.
type Padding struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// ConvolutionInfo configures convolution-family operations.
type ConvolutionInfo struct {
	Padding Padding
	Stride  Stride
}

// PoolingType selects the pooling reduction.
type PoolingType int

const (
	PoolingAvg PoolingType = iota
	PoolingMax
)

func (p PoolingType) String() string {
	switch p {
	case PoolingAvg:
		return "Avg"
	case PoolingMax:
		return "Max"
	default:
		return "Unknown"
	}
}

// PoolingInfo configures a pooling operation. Equality is structural and is
// used to match against the fixed table of hardware-native kernels.
type PoolingInfo struct {
	SizeX   int
	SizeY   int
	StrideX int
	StrideY int
	Padding Padding
	Type    PoolingType
}

// ReluInfo carries the clamp bounds of a Relu operation.
type ReluInfo struct {
	LowerBound int32
	UpperBound int32
}

// ConcatenationInfo configures a concatenation: the axis and the single
// quantization shared by the output.
type ConcatenationInfo struct {
	Axis               int
	OutputQuantization tensor.QuantizationInfo
}

// SplitInfo configures a split: the axis and the per-output sizes along it,
// in declaration order.
type SplitInfo struct {
	Axis  int
	Sizes []int
}

// DepthToSpaceInfo configures a depth-to-space operation.
type DepthToSpaceInfo struct {
	BlockSize int
}

// ConstantData is a literal tensor payload with its descriptor, used for
// weights and explicit constants.
type ConstantData struct {
	Info tensor.Info
	Data []byte
}

// BiasData is a bias payload. Bias values are always int32 at this layer.
type BiasData struct {
	Info tensor.Info
	Data []int32
}
