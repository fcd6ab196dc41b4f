package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Allocator/internal/model"
)

func TestWeightPercents(t *testing.T) {
	tests := []struct {
		name    string
		tickers []string
		weights model.WeightVector
		want    []float64
		wantErr bool
	}{
		{"rounds to basis points", []string{"A", "B", "C"}, model.WeightVector{0.123456, 0.5, 0.376544}, []float64{12.35, 50, 37.65}, false},
		{"single asset", []string{"A"}, model.WeightVector{1}, []float64{100}, false},
		{"length mismatch", []string{"A", "B"}, model.WeightVector{1}, nil, true},
		{"no tickers", nil, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := weightPercents(tt.tickers, tt.weights)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestWeightsChart_Path(t *testing.T) {
	c := WeightsChart{Dir: "outputs", Prefix: "uranium_2018-03-25_2024-04-01"}
	assert.Equal(t, "outputs/uranium_2018-03-25_2024-04-01_weights.png", c.Path())
}
