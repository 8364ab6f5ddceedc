package charts

import (
	"bytes"
	"fmt"

	"github.com/ivanoskov/market_bot/internal/service"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var barColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorOrange,
	chart.ColorRed,
	chart.ColorCyan,
}

// CategoryChart рисует столбчатую диаграмму активных объявлений по категориям.
// Если объявлений нет, возвращает nil.
func CategoryChart(stats []service.CategoryCount) ([]byte, error) {
	maxCount := 0
	for _, s := range stats {
		maxCount = max(maxCount, s.Count)
	}
	if maxCount == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, len(stats))
	for i, s := range stats {
		color := barColors[i%len(barColors)]
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s: %d", s.Category, s.Count),
			Value: float64(s.Count),
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color,
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	graph := chart.BarChart{
		Title: "Объявления по категориям",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1000,
		Height:   600,
		BarWidth: 80,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			// Явный диапазон: при одинаковых значениях автоматический получается нулевым
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category chart: %w", err)
	}
	return buffer.Bytes(), nil
}
