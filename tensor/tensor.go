// Package tensor defines the immutable descriptors shared by every stage of
// the lowering pipeline: tensor shapes in NHWC order, element data types,
// data formats and affine quantization parameters.
package tensor

import (
	"fmt"
)

// Shape holds tensor dimensions in NHWC order: batch, height, width, channels.
// Batch is conventionally 1 for lowering purposes.
type Shape [4]int

// Batch returns the batch dimension.
func (s Shape) Batch() int { return s[0] }

// Height returns the height dimension.
func (s Shape) Height() int { return s[1] }

// Width returns the width dimension.
func (s Shape) Width() int { return s[2] }

// Channels returns the channel dimension.
func (s Shape) Channels() int { return s[3] }

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%dx%d", s[0], s[1], s[2], s[3])
}

// NumElements returns the total number of elements described by the shape.
func (s Shape) NumElements() int {
	return s[0] * s[1] * s[2] * s[3]
}

// Validate checks that all dimensions are non-negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid shape %v: dimension %d is negative", s, i)
		}
	}
	return nil
}

// DataType identifies the element type of a tensor payload.
type DataType int

const (
	UInt8Quantized DataType = iota
	Int32Quantized
)

func (d DataType) String() string {
	switch d {
	case UInt8Quantized:
		return "UInt8Quantized"
	case Int32Quantized:
		return "Int32Quantized"
	default:
		return "Unknown"
	}
}

// SizeBytes returns the storage size of one element.
func (d DataType) SizeBytes() int {
	switch d {
	case UInt8Quantized:
		return 1
	case Int32Quantized:
		return 4
	default:
		return 1
	}
}

// DataFormat identifies the external layout of a tensor.
//
// NHWC is the generic planar layout with channels fastest-varying. NHWCB is
// the hardware's compact brick layout. HWIO and HWIM are weight layouts for
// regular and depthwise convolutions respectively.
type DataFormat int

const (
	NHWC DataFormat = iota
	NHWCB
	HWIO
	HWIM
)

func (f DataFormat) String() string {
	switch f {
	case NHWC:
		return "NHWC"
	case NHWCB:
		return "NHWCB"
	case HWIO:
		return "HWIO"
	case HWIM:
		return "HWIM"
	default:
		return "Unknown"
	}
}

// QuantizationInfo describes the affine mapping from stored integer values to
// real values: real = (stored - ZeroPoint) * Scale. Equality is structural.
type QuantizationInfo struct {
	ZeroPoint int32
	Scale     float32
}

func (q QuantizationInfo) String() string {
	return fmt.Sprintf("(zp=%d scale=%v)", q.ZeroPoint, q.Scale)
}

// Validate checks the scale invariant.
func (q QuantizationInfo) Validate() error {
	if q.Scale <= 0 {
		return fmt.Errorf("invalid quantization %v: scale must be > 0", q)
	}
	return nil
}

// Info fully describes a tensor operand: dimensions, element type, layout and
// quantization.
type Info struct {
	Shape        Shape
	DataType     DataType
	Format       DataFormat
	Quantization QuantizationInfo
}

func (i Info) String() string {
	return fmt.Sprintf("Info(shape=%s, dtype=%s, format=%s, quant=%s)",
		i.Shape, i.DataType, i.Format, i.Quantization)
}

// TotalBytes returns the byte size of a dense payload for this descriptor.
func (i Info) TotalBytes() int {
	return i.Shape.NumElements() * i.DataType.SizeBytes()
}
