// Package graph renders review images for collected trials: the corrected
// mediolateral force with its detected peaks for baseline steps, the
// per-channel panels for a full trial, and the center of pressure path.
package graph

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/signal"
)

const (
	panelWidth  = 5 * vg.Inch
	panelHeight = 4 * vg.Inch
)

// Baseline renders the quiet-stance-corrected mediolateral force with the
// detected peaks and valleys marked, as a PNG.
func Baseline(delta []float64, peaks, valleys []signal.Peak) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Mediolateral Force (N)"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Force (N)"

	line, err := plotter.NewLine(series(delta))
	if err != nil {
		return nil, fmt.Errorf("graph: building force line: %w", err)
	}
	p.Add(line)

	for _, marks := range [][]signal.Peak{peaks, valleys} {
		if len(marks) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(marks))
		for i, m := range marks {
			pts[i].X = float64(m.Index)
			pts[i].Y = delta[m.Index]
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("graph: building peak markers: %w", err)
		}
		scatter.GlyphStyle.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
	}

	return encode(p)
}

// Trial renders the per-channel panels of a recorded trial as one PNG: the
// three force axes and both EMG channels.
func Trial(frames []platform.Frame) ([]byte, error) {
	panels := []struct {
		title   string
		channel int
	}{
		{"Mediolateral Force (N)", platform.FX},
		{"Anteroposterior Force (N)", platform.FY},
		{"Vertical Force (N)", platform.FZ},
		{"EMG Tibialis (V)", platform.EMG1},
		{"EMG Soleus (V)", platform.EMG2},
	}

	const rows, cols = 3, 2
	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
	}

	// A trial holds minutes of samples; decimate each panel to roughly the
	// pixel budget of the plot.
	const maxPoints = 2000
	factor := len(frames)/maxPoints + 1

	for i, panel := range panels {
		p := plot.New()
		p.Title.Text = panel.title
		p.X.Label.Text = "Sample"

		values := make([]float64, len(frames))
		for j, f := range frames {
			values[j] = f[panel.channel]
		}
		values = signal.Decimate(values, factor)
		line, err := plotter.NewLine(series(values))
		if err != nil {
			return nil, fmt.Errorf("graph: building %s line: %w", panel.title, err)
		}
		p.Add(line)
		plots[i/cols][i%cols] = p
	}

	img := vgimg.New(2*panelWidth, 3*panelHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Millimeter, PadBottom: vg.Millimeter,
		PadLeft: vg.Millimeter, PadRight: vg.Millimeter,
	}

	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			if plots[r][c] != nil {
				plots[r][c].Draw(canvases[r][c])
			}
		}
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("graph: encoding trial panels: %w", err)
	}
	return buf.Bytes(), nil
}

// CoPPath renders the center of pressure trajectory as a PNG. Samples where
// the platform is unloaded are skipped.
func CoPPath(frames []platform.Frame) ([]byte, error) {
	pts := make(plotter.XYs, 0, len(frames))
	for _, f := range frames {
		copX, copY, ok := platform.CenterOfPressure(
			f[platform.FX], f[platform.FY], f[platform.FZ],
			f[platform.MX], f[platform.MY],
		)
		if !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: copX, Y: copY})
	}

	p := plot.New()
	p.Title.Text = "Center of Pressure Path"
	p.X.Label.Text = "CoPx (m)"
	p.Y.Label.Text = "CoPy (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("graph: building CoP path: %w", err)
	}
	p.Add(line)

	return encode(p)
}

func series(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

func encode(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(panelWidth, panelHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("graph: preparing png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("graph: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
