package main

import (
	"math"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name    string
		maxBlob int64
		want    int
	}{
		{name: "unlimited blobs keep the fiber default", maxBlob: 0, want: fiber.DefaultBodyLimit},
		{name: "negative is unlimited", maxBlob: -1, want: fiber.DefaultBodyLimit},
		{name: "room for the multipart envelope", maxBlob: 32 << 20, want: 33 << 20},
		{name: "largest value that fits", maxBlob: int64(math.MaxInt - 1<<20), want: math.MaxInt},
		{name: "near max int64 is clamped", maxBlob: math.MaxInt64 - 1, want: math.MaxInt},
		{name: "max int64 is clamped", maxBlob: math.MaxInt64, want: math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bodyLimit(tt.maxBlob)
			assert.Equal(t, tt.want, got)
			assert.Positive(t, got)
		})
	}
}
