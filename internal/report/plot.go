package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scenebench/internal/apeval"
)

// CurveSeries is one labelled precision/recall curve.
type CurveSeries struct {
	Label string
	AP    float64
	Curve apeval.Curve
}

var curveColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
}

// SavePRCurves writes a PNG with one precision/recall line per series.
// Series with an empty curve are skipped.
func SavePRCurves(path, title string, series []CurveSeries) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Recall"
	p.Y.Label.Text = "Precision"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	drawn := 0
	for i, s := range series {
		n := len(s.Curve.Recall)
		if n == 0 || n != len(s.Curve.Precision) {
			continue
		}
		pts := make(plotter.XYs, n)
		for j := range pts {
			pts[j] = plotter.XY{X: s.Curve.Recall[j], Y: s.Curve.Precision[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("pr curve for %s: %w", s.Label, err)
		}
		line.Width = vg.Points(1.5)
		line.Color = curveColors[i%len(curveColors)]
		p.Add(line)
		p.Legend.Add(legendLabel(s), line)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("no curves to plot")
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save pr curve plot: %w", err)
	}
	return nil
}

func legendLabel(s CurveSeries) string {
	if math.IsNaN(s.AP) {
		return s.Label + " (AP n/a)"
	}
	return fmt.Sprintf("%s (AP %.3f)", s.Label, s.AP)
}
