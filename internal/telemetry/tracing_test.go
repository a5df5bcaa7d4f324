package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "  ", "multimind-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		endpoint string
		target   string
		insecure bool
	}{
		{"localhost:4317", "localhost:4317", true},
		{"http://collector:4317/v1/traces", "collector:4317", true},
		{"https://otel.example.com:4317", "otel.example.com:4317", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			target, insecure, err := grpcTarget(tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.insecure, insecure)
		})
	}

	_, _, err := grpcTarget("http://")
	assert.Error(t, err)
}
