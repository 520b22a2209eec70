package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     ProcessorKind
		expected string
	}{
		{"default", ProcessorDefault, "default"},
		{"fallback", ProcessorFallback, "fallback"},
		{"unknown", ProcessorKind(7), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestFormatRequestedAt(t *testing.T) {
	tests := []struct {
		name     string
		ms       int64
		expected string
	}{
		{"epoch", 0, "1970-01-01T00:00:00.000Z"},
		{"millisecond precision kept", 1752000000123, "2025-07-08T18:40:00.123Z"},
		{"trailing zeros not trimmed", 1752000000100, "2025-07-08T18:40:00.100Z"},
		{"whole second padded", 1752000000000, "2025-07-08T18:40:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatRequestedAt(tt.ms))
		})
	}
}

func TestSummaryResponse_JSONShape(t *testing.T) {
	resp := SummaryResponse{
		Default: ProcessorSummary{
			TotalRequests: 3,
			TotalAmount:   decimal.RequireFromString("150.51"),
		},
		Fallback: ProcessorSummary{TotalAmount: decimal.Zero},
	}

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	// Amounts must be JSON numbers and fields camelCase.
	assert.JSONEq(t,
		`{"default":{"totalRequests":3,"totalAmount":150.51},"fallback":{"totalRequests":0,"totalAmount":0}}`,
		string(raw))
}

func TestZeroSummary(t *testing.T) {
	raw, err := json.Marshal(ZeroSummary())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"default":{"totalRequests":0,"totalAmount":0},"fallback":{"totalRequests":0,"totalAmount":0}}`,
		string(raw))
}

func TestPaymentRequest_AmountPrecision(t *testing.T) {
	// 0.1 + 0.2 style drift must not appear in summed amounts.
	sum := decimal.Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(decimal.RequireFromString("0.10"))
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("1.00")),
		"expected exactly 1.00, got %s", sum)
}
