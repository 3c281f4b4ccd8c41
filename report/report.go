// Package report renders bench artifacts: waveform overlay plots, Bode
// plots, and CSV dumps of captured data.
package report

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/benchtop/adcdac/instrument"
	"github.com/benchtop/adcdac/sweep"
)

var (
	inputColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	outputColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	markerColor = color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}
)

func bufferXYs(b instrument.CaptureBuffer) plotter.XYs {
	t := b.Times()
	xys := make(plotter.XYs, len(b.Samples))
	for i, v := range b.Samples {
		xys[i].X = t[i]
		xys[i].Y = v
	}
	return xys
}

// Overlay writes a PNG plotting the ideal input and measured output on a
// shared time axis
func Overlay(path, title string, in, out instrument.CaptureBuffer) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "voltage (V)"
	p.Add(plotter.NewGrid())

	inLine, err := plotter.NewLine(bufferXYs(in))
	if err != nil {
		return fmt.Errorf("plot input trace: %w", err)
	}
	inLine.Color = inputColor
	outLine, err := plotter.NewLine(bufferXYs(out))
	if err != nil {
		return fmt.Errorf("plot output trace: %w", err)
	}
	outLine.Color = outputColor
	p.Add(inLine, outLine)
	p.Legend.Add("input (ideal)", inLine)
	p.Legend.Add("output (measured)", outLine)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func logFrequencyAxis(p *plot.Plot) {
	p.X.Label.Text = "frequency (Hz)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
}

// Bode writes a PNG with stacked magnitude and phase panels over a log
// frequency axis.  Points with non-finite gain in dB are left to gonum's
// clamping; a dashed line marks -3 dB on the magnitude panel
func Bode(path string, pts []sweep.Point) error {
	if len(pts) == 0 {
		return fmt.Errorf("bode plot: no sweep points")
	}

	mag := plot.New()
	mag.Title.Text = "Passthrough frequency response"
	mag.Y.Label.Text = "gain (dB)"
	logFrequencyAxis(mag)
	mag.Add(plotter.NewGrid())

	magXYs := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		magXYs = append(magXYs, plotter.XY{X: pt.Frequency, Y: pt.GainDB})
	}
	magLine, magPts, err := plotter.NewLinePoints(magXYs)
	if err != nil {
		return fmt.Errorf("plot magnitude trace: %w", err)
	}
	magLine.Color = inputColor
	magPts.Color = inputColor
	mag.Add(magLine, magPts)

	cutoff, err := plotter.NewLine(plotter.XYs{
		{X: pts[0].Frequency, Y: -3},
		{X: pts[len(pts)-1].Frequency, Y: -3},
	})
	if err != nil {
		return fmt.Errorf("plot cutoff marker: %w", err)
	}
	cutoff.Color = markerColor
	cutoff.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	mag.Add(cutoff)
	mag.Legend.Add("-3 dB", cutoff)

	ph := plot.New()
	ph.Y.Label.Text = "phase (deg)"
	logFrequencyAxis(ph)
	ph.Add(plotter.NewGrid())

	phXYs := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		phXYs = append(phXYs, plotter.XY{X: pt.Frequency, Y: pt.PhaseDeg})
	}
	phLine, phPts, err := plotter.NewLinePoints(phXYs)
	if err != nil {
		return fmt.Errorf("plot phase trace: %w", err)
	}
	phLine.Color = outputColor
	phPts.Color = outputColor
	ph.Add(phLine, phPts)

	img := vgimg.New(8*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
		PadY:      vg.Points(8),
	}
	plots := [][]*plot.Plot{{mag}, {ph}}
	canvases := plot.Align(plots, tiles, dc)
	plots[0][0].Draw(canvases[0][0])
	plots[1][0].Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSV dumps captured buffers to a CSV file with a time column
func WriteCSV(path string, bufs ...instrument.CaptureBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer f.Close()
	if err := instrument.EncodeCSV(f, bufs...); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}
