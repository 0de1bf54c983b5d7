package chart

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Series is one labelled line. YErr, when set, holds a symmetric error
// magnitude per point.
type Series struct {
	Label string
	X     []float64
	Y     []float64
	YErr  []float64
}

// Figure describes a chart. The last SecondarySeries entries of Series are
// drawn against a right-hand axis titled SecondaryLabel.
type Figure struct {
	Title           string
	XLabel          string
	YLabel          string
	SecondaryLabel  string
	Series          []Series
	SecondarySeries int
	LogX            bool
	Width           vg.Length
	Height          vg.Length
	Path            string
}

// Render draws the chart and writes it to fig.Path, replacing any existing
// file. The format follows the file extension (pdf, png, svg, eps, jpg, tif).
func Render(fig Figure) error {
	if fig.Path == "" {
		return errors.New("chart has no output path")
	}
	if err := fig.Validate(); err != nil {
		return err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fig.Path)), ".")
	c, err := draw.NewFormattedCanvas(fig.width(), fig.height(), format)
	if err != nil {
		return fmt.Errorf("failed to create %q canvas: %w", format, err)
	}

	if err := Draw(draw.New(c), fig); err != nil {
		return err
	}

	f, err := os.Create(fig.Path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write chart %s: %w", fig.Path, err)
	}
	return f.Close()
}

// Draw renders the chart onto an existing canvas
func Draw(dc draw.Canvas, fig Figure) error {
	if err := fig.Validate(); err != nil {
		return err
	}

	nPrimary := len(fig.Series) - fig.SecondarySeries

	primary := newPlot(fig)
	primary.Y.Label.Text = fig.YLabel
	for i, s := range fig.Series[:nPrimary] {
		ps, thumbs, err := seriesPlotters(s, i, false)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		primary.Add(ps...)
		primary.Legend.Add(s.Label, thumbs...)
	}

	if fig.SecondarySeries == 0 {
		primary.Draw(dc)
		return nil
	}

	secondary := newPlot(fig)
	secondary.Y.Label.Text = fig.SecondaryLabel
	var overlay []plot.Plotter
	for i, s := range fig.Series[nPrimary:] {
		ps, thumbs, err := seriesPlotters(s, nPrimary+i, true)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		secondary.Add(ps...)
		overlay = append(overlay, ps...)
		primary.Legend.Add(s.Label, thumbs...)
	}

	// both layers share one x axis
	primary.X.Min = math.Min(primary.X.Min, secondary.X.Min)
	primary.X.Max = math.Max(primary.X.Max, secondary.X.Max)
	padRange(&primary.X)
	secondary.X.Min, secondary.X.Max = primary.X.Min, primary.X.Max
	padRange(&secondary.Y)

	inner := dc
	inner.Max.X -= rightAxisWidth(secondary)
	primary.Draw(inner)

	da := primary.DataCanvas(inner)
	for _, p := range overlay {
		p.Plot(da, secondary)
	}
	drawRightAxis(dc, da, secondary)
	return nil
}

// Validate checks that every series is well formed
func (f Figure) Validate() error {
	if len(f.Series) == 0 {
		return errors.New("chart has no series")
	}
	if f.SecondarySeries < 0 || f.SecondarySeries >= len(f.Series) {
		return fmt.Errorf("secondary series count %d out of range for %d series", f.SecondarySeries, len(f.Series))
	}
	for _, series := range f.Series {
		if len(series.X) == 0 {
			return fmt.Errorf("series %q is empty", series.Label)
		}
		if len(series.X) != len(series.Y) {
			return fmt.Errorf("series %q: %d x values but %d y values", series.Label, len(series.X), len(series.Y))
		}
		if series.YErr != nil && len(series.YErr) != len(series.Y) {
			return fmt.Errorf("series %q: %d error bars for %d points", series.Label, len(series.YErr), len(series.Y))
		}
		if f.LogX {
			for _, x := range series.X {
				if x <= 0 {
					return fmt.Errorf("series %q: x value %g not allowed on a log axis", series.Label, x)
				}
			}
		}
	}
	return nil
}

func (f Figure) width() vg.Length {
	if f.Width <= 0 {
		return DefaultWidth
	}
	return f.Width
}

func (f Figure) height() vg.Length {
	if f.Height <= 0 {
		return DefaultHeight
	}
	return f.Height
}

func newPlot(fig Figure) *plot.Plot {
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	if fig.LogX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())
	return p
}

// errorPoints pairs points with their error magnitudes for plotter.NewYErrorBars
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

func seriesPlotters(s Series, idx int, dashed bool) ([]plot.Plotter, []plot.Thumbnailer, error) {
	pts := make(plotter.XYs, len(s.X))
	for i := range s.X {
		pts[i].X = s.X[i]
		pts[i].Y = s.Y[i]
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, nil, err
	}
	c := plotutil.Color(idx)
	line.Color = c
	line.Width = vg.Points(1.5)
	if dashed {
		line.Dashes = plotutil.Dashes(1)
	}
	points.Color = c
	points.Shape = plotutil.Shape(idx)

	ps := []plot.Plotter{line, points}
	if s.YErr != nil {
		errs := make(plotter.YErrors, len(s.YErr))
		for i, e := range s.YErr {
			errs[i].Low = e
			errs[i].High = e
		}
		bars, err := plotter.NewYErrorBars(errorPoints{XYs: pts, YErrors: errs})
		if err != nil {
			return nil, nil, err
		}
		bars.Color = c
		ps = append(ps, bars)
	}
	return ps, []plot.Thumbnailer{line, points}, nil
}

// padRange widens a degenerate axis range the way plot.Draw would
func padRange(a *plot.Axis) {
	if math.IsInf(a.Min, 0) || math.IsInf(a.Max, 0) {
		a.Min, a.Max = 0, 1
	}
	if a.Min == a.Max {
		if _, ok := a.Scale.(plot.LogScale); ok && a.Min > 0 {
			a.Min /= 10
			a.Max *= 10
			return
		}
		a.Min--
		a.Max++
	}
}
