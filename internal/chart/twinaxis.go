package chart

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const axisPad = vg.Length(4)

// rightAxisWidth is the horizontal space the secondary axis needs beside the data area
func rightAxisWidth(p *plot.Plot) vg.Length {
	var labels vg.Length
	for _, t := range p.Y.Tick.Marker.Ticks(p.Y.Min, p.Y.Max) {
		if t.IsMinor() {
			continue
		}
		if w := p.Y.Tick.Label.Width(t.Label); w > labels {
			labels = w
		}
	}
	w := p.Y.Tick.Length + axisPad + labels + axisPad
	if p.Y.Label.Text != "" {
		w += p.Y.Label.TextStyle.Height(p.Y.Label.Text) + axisPad
	}
	return w
}

// drawRightAxis draws p's y axis along the right edge of the data area da
func drawRightAxis(c draw.Canvas, da draw.Canvas, p *plot.Plot) {
	x := da.Max.X
	c.StrokeLine2(p.Y.LineStyle, x, da.Min.Y, x, da.Max.Y)

	sty := p.Y.Tick.Label
	sty.XAlign = draw.XLeft
	sty.YAlign = draw.YCenter

	var labels vg.Length
	for _, t := range p.Y.Tick.Marker.Ticks(p.Y.Min, p.Y.Max) {
		if t.Value < p.Y.Min || t.Value > p.Y.Max {
			continue
		}
		y := da.Y(p.Y.Norm(t.Value))
		length := p.Y.Tick.Length
		if t.IsMinor() {
			length /= 2
		}
		c.StrokeLine2(p.Y.Tick.LineStyle, x, y, x+length, y)
		if t.IsMinor() {
			continue
		}
		c.FillText(sty, vg.Point{X: x + p.Y.Tick.Length + axisPad, Y: y}, t.Label)
		if w := sty.Width(t.Label); w > labels {
			labels = w
		}
	}

	if p.Y.Label.Text == "" {
		return
	}
	lsty := p.Y.Label.TextStyle
	lsty.Rotation = -math.Pi / 2
	lsty.XAlign = draw.XCenter
	lsty.YAlign = draw.YBottom
	pt := vg.Point{
		X: x + p.Y.Tick.Length + axisPad + labels + axisPad,
		Y: da.Center().Y,
	}
	c.FillText(lsty, pt, p.Y.Label.Text)
}
