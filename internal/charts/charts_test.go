package charts

import (
	"bytes"
	"testing"

	"github.com/ivanoskov/market_bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryChartRendersPNG(t *testing.T) {
	stats := []service.CategoryCount{
		{Category: "Бытовая техника", Count: 2},
		{Category: "Мебель", Count: 2},
		{Category: "Одежда", Count: 0},
		{Category: "Другое", Count: 5},
	}

	png, err := CategoryChart(stats)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestCategoryChartNothingToDraw(t *testing.T) {
	for _, stats := range [][]service.CategoryCount{
		nil,
		{{Category: "Мебель", Count: 0}},
	} {
		png, err := CategoryChart(stats)
		assert.NoError(t, err)
		assert.Nil(t, png)
	}
}
