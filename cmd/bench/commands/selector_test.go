package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectors(t *testing.T) {
	t.Parallel()

	attrs := map[string]any{
		"workload":         "matmul",
		"device.kind":      "gpu",
		"device.capacity":  int64(4),
		"platform.version": "2.1.0",
	}

	tests := []struct {
		name      string
		selectors []string
		want      bool
	}{
		{"empty matches everything", nil, true},
		{"equality", []string{"workload=matmul"}, true},
		{"equality miss", []string{"workload=sort"}, false},
		{"inequality", []string{"workload!=sort"}, true},
		{"membership", []string{"device.kind in gpu,cpu"}, true},
		{"membership miss", []string{"device.kind in cpu,tpu"}, false},
		{"numeric range", []string{"device.capacity>=2"}, true},
		{"numeric range miss", []string{"device.capacity<4"}, false},
		{"conjunction", []string{"workload=matmul", "device.kind=gpu"}, true},
		{"conjunction partial miss", []string{"workload=matmul", "device.kind=cpu"}, false},
		{"missing attribute", []string{"model=resnet"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pred, err := parseSelectors(tt.selectors)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred.Eval(attrs))
		})
	}
}

func TestParseSelectorsInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"workload", "=matmul", "workload="} {
		_, err := parseSelectors([]string{raw})
		assert.Error(t, err, raw)
	}
}
