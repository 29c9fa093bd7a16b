package hw

import (
	"testing"

	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name          string
		brickGroup    tensor.Shape
		numberOfSrams int
		wantErr       bool
	}{
		{"default geometry", tensor.Shape{1, 8, 8, 16}, 16, false},
		{"taller brick group", tensor.Shape{1, 16, 8, 16}, 8, false},
		{"height not patch multiple", tensor.Shape{1, 6, 8, 16}, 16, true},
		{"width not patch multiple", tensor.Shape{1, 8, 5, 16}, 16, true},
		{"zero srams", tensor.Shape{1, 8, 8, 16}, 0, true},
	}

	for _, test := range tests {
		_, err := New(test.brickGroup, test.numberOfSrams)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: New() error = %v, expected error %v", test.name, err, test.wantErr)
		}
	}
}

func TestDefault(t *testing.T) {
	caps := Default()
	if caps.BrickGroupShape() != (tensor.Shape{1, 8, 8, 16}) {
		t.Errorf("Default().BrickGroupShape() = %s", caps.BrickGroupShape())
	}
	if caps.NumberOfSrams() != 16 {
		t.Errorf("Default().NumberOfSrams() = %d, expected 16", caps.NumberOfSrams())
	}
}

func TestSubmapChannels(t *testing.T) {
	caps := Default()

	tests := []struct {
		channels int
		strideX  int
		strideY  int
		expected int
	}{
		// Multiples of the SRAM count interleave fully.
		{16, 2, 2, 64},
		{32, 2, 2, 128},
		// Otherwise every submap except the last is padded to the SRAM
		// count.
		{1, 2, 2, 49},
		{3, 2, 2, 51},
		{17, 2, 2, 113},
	}

	for _, test := range tests {
		result := caps.SubmapChannels(test.channels, test.strideX, test.strideY)
		if result != test.expected {
			t.Errorf("SubmapChannels(%d, %d, %d) = %d, expected %d",
				test.channels, test.strideX, test.strideY, result, test.expected)
		}
	}
}
