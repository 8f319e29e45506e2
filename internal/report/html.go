package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scenebench/internal/apeval"
	"github.com/banshee-data/scenebench/internal/confusion"
)

// AssetsHost serves the echarts javascript. Override for offline viewing.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// barValue maps NaN to null; JSON has no NaN and echarts skips nulls.
func barValue(v float64) opts.BarData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.BarData{Value: nil}
	}
	return opts.BarData{Value: math.Round(v*1000) / 1000}
}

func newBar(title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "560px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	return bar
}

// InstanceChart is a grouped bar chart of per-class AP values.
func InstanceChart(title string, s apeval.Summary) *charts.Bar {
	names := make([]string, len(s.Classes))
	ap := make([]opts.BarData, len(s.Classes))
	ap50 := make([]opts.BarData, len(s.Classes))
	ap25 := make([]opts.BarData, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Label
		ap[i], ap50[i], ap25[i] = barValue(c.AP), barValue(c.AP50), barValue(c.AP25)
	}

	subtitle := fmt.Sprintf("mAP %.3f  AP50 %.3f", s.MeanAP, s.AP50)
	if s.Has25 {
		subtitle += fmt.Sprintf("  AP25 %.3f", s.AP25)
	}
	bar := newBar(title, subtitle)
	bar.SetXAxis(names).
		AddSeries("AP", ap).
		AddSeries("AP50", ap50)
	if s.Has25 {
		bar.AddSeries("AP25", ap25)
	}
	return bar
}

// ScoreChart is a bar chart of per-class IoU or recall values.
func ScoreChart(title, series string, scores []confusion.ClassScore) *charts.Bar {
	names := make([]string, len(scores))
	values := make([]opts.BarData, len(scores))
	for i, s := range scores {
		names[i] = s.Label
		values[i] = barValue(s.Value)
	}
	bar := newBar(title, fmt.Sprintf("mean %.3f", confusion.Mean(scores)))
	bar.SetXAxis(names).AddSeries(series, values,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

// WritePage renders the charts into one HTML page.
func WritePage(w io.Writer, title string, bars ...*charts.Bar) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetAssetsHost(AssetsHost)
	for _, b := range bars {
		page.AddCharts(b)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
