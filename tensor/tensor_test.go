package tensor

import (
	"bytes"
	"testing"
)

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		dtype    DataType
		expected string
	}{
		{UInt8Quantized, "UInt8Quantized"},
		{Int32Quantized, "Int32Quantized"},
		{DataType(999), "Unknown"},
	}

	for _, test := range tests {
		result := test.dtype.String()
		if result != test.expected {
			t.Errorf("DataType.String() = %s, expected %s", result, test.expected)
		}
	}
}

func TestDataFormatString(t *testing.T) {
	tests := []struct {
		format   DataFormat
		expected string
	}{
		{NHWC, "NHWC"},
		{NHWCB, "NHWCB"},
		{HWIO, "HWIO"},
		{HWIM, "HWIM"},
		{DataFormat(999), "Unknown"},
	}

	for _, test := range tests {
		result := test.format.String()
		if result != test.expected {
			t.Errorf("DataFormat.String() = %s, expected %s", result, test.expected)
		}
	}
}

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape    Shape
		expected int
	}{
		{Shape{1, 1, 1, 1}, 1},
		{Shape{1, 8, 8, 16}, 1024},
		{Shape{1, 3, 5, 7}, 105},
		{Shape{1, 4, 4, 0}, 0},
	}

	for _, test := range tests {
		result := test.shape.NumElements()
		if result != test.expected {
			t.Errorf("Shape(%s).NumElements() = %d, expected %d", test.shape, result, test.expected)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{1, 16, 16, 32}).Validate(); err != nil {
		t.Errorf("Validate() on valid shape returned %v", err)
	}
	if err := (Shape{1, -1, 16, 32}).Validate(); err == nil {
		t.Error("Validate() on negative dimension did not return an error")
	}
}

func TestQuantizationValidate(t *testing.T) {
	tests := []struct {
		quant   QuantizationInfo
		wantErr bool
	}{
		{QuantizationInfo{ZeroPoint: 0, Scale: 1.0}, false},
		{QuantizationInfo{ZeroPoint: 128, Scale: 0.007843}, false},
		{QuantizationInfo{ZeroPoint: 0, Scale: 0}, true},
		{QuantizationInfo{ZeroPoint: 0, Scale: -0.5}, true},
	}

	for _, test := range tests {
		err := test.quant.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("QuantizationInfo(%s).Validate() = %v, expected error %v", test.quant, err, test.wantErr)
		}
	}
}

func TestInfoTotalBytes(t *testing.T) {
	tests := []struct {
		info     Info
		expected int
	}{
		{Info{Shape: Shape{1, 2, 2, 4}, DataType: UInt8Quantized}, 16},
		{Info{Shape: Shape{1, 1, 1, 8}, DataType: Int32Quantized}, 32},
	}

	for _, test := range tests {
		result := test.info.TotalBytes()
		if result != test.expected {
			t.Errorf("TotalBytes() = %d, expected %d", result, test.expected)
		}
	}
}

func TestDivRoundUp(t *testing.T) {
	tests := []struct {
		numerator   int
		denominator int
		expected    int
	}{
		{0, 4, 0},
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 2},
		{16, 4, 4},
		{17, 4, 5},
	}

	for _, test := range tests {
		result := DivRoundUp(test.numerator, test.denominator)
		if result != test.expected {
			t.Errorf("DivRoundUp(%d, %d) = %d, expected %d",
				test.numerator, test.denominator, result, test.expected)
		}
	}
}

func TestRoundUpToNearestMultiple(t *testing.T) {
	tests := []struct {
		value    int
		multiple int
		expected int
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{1000, 1024, 1024},
		{1025, 1024, 2048},
	}

	for _, test := range tests {
		result := RoundUpToNearestMultiple(test.value, test.multiple)
		if result != test.expected {
			t.Errorf("RoundUpToNearestMultiple(%d, %d) = %d, expected %d",
				test.value, test.multiple, result, test.expected)
		}
	}
}

func TestElementOffset(t *testing.T) {
	shape := Shape{2, 3, 4, 5}
	tests := []struct {
		d0, d1, d2, d3 int
		expected       int
	}{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 1, 1},
		{0, 0, 1, 0, 5},
		{0, 1, 0, 0, 20},
		{1, 0, 0, 0, 60},
		{1, 2, 3, 4, 119},
	}

	for _, test := range tests {
		result := ElementOffset(shape, test.d0, test.d1, test.d2, test.d3)
		if result != test.expected {
			t.Errorf("ElementOffset(%s, %d, %d, %d, %d) = %d, expected %d",
				shape, test.d0, test.d1, test.d2, test.d3, result, test.expected)
		}
	}
}

func TestRotate180(t *testing.T) {
	// A 2x2 kernel with 1x1 trailing dims flips both spatial axes.
	shape := Shape{2, 2, 1, 1}
	data := []byte{1, 2, 3, 4}
	expected := []byte{4, 3, 2, 1}
	result := Rotate180(data, shape)
	if !bytes.Equal(result, expected) {
		t.Errorf("Rotate180(%v) = %v, expected %v", data, result, expected)
	}

	// Trailing dims are copied as contiguous runs, untouched internally.
	shape = Shape{2, 1, 1, 2}
	data = []byte{1, 2, 3, 4}
	expected = []byte{3, 4, 1, 2}
	result = Rotate180(data, shape)
	if !bytes.Equal(result, expected) {
		t.Errorf("Rotate180(%v) = %v, expected %v", data, result, expected)
	}

	// 3x3 single-channel kernel.
	shape = Shape{3, 3, 1, 1}
	data = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	expected = []byte{9, 8, 7, 6, 5, 4, 3, 2, 1}
	result = Rotate180(data, shape)
	if !bytes.Equal(result, expected) {
		t.Errorf("Rotate180(%v) = %v, expected %v", data, result, expected)
	}
}

func TestPad(t *testing.T) {
	data := []byte{1, 2, 3}

	result := Pad(data, 6, 7)
	expected := []byte{1, 2, 3, 7, 7, 7}
	if !bytes.Equal(result, expected) {
		t.Errorf("Pad(%v, 6, 7) = %v, expected %v", data, result, expected)
	}

	// Already large enough: unchanged copy.
	result = Pad(data, 3, 7)
	if !bytes.Equal(result, data) {
		t.Errorf("Pad(%v, 3, 7) = %v, expected %v", data, result, data)
	}

	// The input slice must not be mutated.
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("Pad mutated its input: %v", data)
	}
}
