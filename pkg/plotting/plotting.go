// Package plotting renders training diagnostics to PNG files. It is a pure
// consumer: the emulator hands it loss histories and prediction/truth pairs
// and never reads anything back. Failures here are reported to the caller
// but must never abort training or prediction.
package plotting

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plotter writes diagnostic plots under a base directory, creating the
// per-plot subdirectories on demand.
type Plotter struct {
	dir string
	log *zap.Logger
}

// New creates a Plotter rooted at dir. A nil logger disables logging.
func New(dir string, log *zap.Logger) *Plotter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Plotter{dir: dir, log: log.Named("plotting")}
}

// LossHistory plots the optimization objective per iteration for one model.
func (pl *Plotter) LossHistory(name string, losses []float64) error {
	path, err := pl.ensure("loss", name+"_loss.png")
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Negative log marginal likelihood"

	pts := make(plotter.XYs, len(losses))
	for i, v := range losses {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return pl.fail(name, err)
	}
	l.Color = color.RGBA{B: 255, A: 255}
	p.Add(l)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return pl.fail(name, err)
	}
	return nil
}

type valsWithErrs struct {
	plotter.XYs
	plotter.YErrors
}

// TestSetPrediction plots predicted means with error bars against the true
// held-out values, together with the identity line.
func (pl *Plotter) TestSetPrediction(name string, truth, mean, std []float64) error {
	path, err := pl.ensure("test_set_prediction", name+".png")
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = "True value"
	p.Y.Label.Text = "Predicted value"

	data := valsWithErrs{
		XYs:     make(plotter.XYs, len(truth)),
		YErrors: make(plotter.YErrors, len(truth)),
	}
	lo, hi := truth[0], truth[0]
	for i := range truth {
		data.XYs[i] = plotter.XY{X: truth[i], Y: mean[i]}
		data.YErrors[i].Low = std[i]
		data.YErrors[i].High = std[i]
		if truth[i] < lo {
			lo = truth[i]
		}
		if truth[i] > hi {
			hi = truth[i]
		}
	}

	s, err := plotter.NewScatter(data.XYs)
	if err != nil {
		return pl.fail(name, err)
	}
	s.Color = color.RGBA{B: 255, A: 255, R: 50, G: 50}
	p.Add(s)

	bars, err := plotter.NewYErrorBars(data)
	if err != nil {
		return pl.fail(name, err)
	}
	p.Add(bars)

	ident, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return pl.fail(name, err)
	}
	ident.Color = color.RGBA{R: 255, A: 255}
	p.Add(ident)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return pl.fail(name, err)
	}
	return nil
}

// PredictionCheck plots a single-point quality check: the drawn samples, the
// predictive mean with its error bar, and the true value.
func (pl *Plotter) PredictionCheck(name string, point []float64, truth, mean, std float64, samples []float64) error {
	path, err := pl.ensure("prediction_check", name+".png")
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s at %v", name, point)
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Value"

	pts := make(plotter.XYs, len(samples))
	for i, v := range samples {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return pl.fail(name, err)
	}
	s.Color = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	p.Add(s)

	n := float64(len(samples))
	if n == 0 {
		n = 1
	}
	meanLine, err := plotter.NewLine(plotter.XYs{{X: 0, Y: mean}, {X: n - 1, Y: mean}})
	if err != nil {
		return pl.fail(name, err)
	}
	meanLine.Color = color.RGBA{A: 255}
	p.Add(meanLine)

	truthLine, err := plotter.NewLine(plotter.XYs{{X: 0, Y: truth}, {X: n - 1, Y: truth}})
	if err != nil {
		return pl.fail(name, err)
	}
	truthLine.Color = color.RGBA{R: 255, A: 255}
	p.Add(truthLine)

	bandHi, err := plotter.NewLine(plotter.XYs{{X: 0, Y: mean + std}, {X: n - 1, Y: mean + std}})
	if err != nil {
		return pl.fail(name, err)
	}
	bandLo, err := plotter.NewLine(plotter.XYs{{X: 0, Y: mean - std}, {X: n - 1, Y: mean - std}})
	if err != nil {
		return pl.fail(name, err)
	}
	grey := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	bandHi.Color = grey
	bandLo.Color = grey
	p.Add(bandHi, bandLo)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return pl.fail(name, err)
	}
	return nil
}

func (pl *Plotter) ensure(sub, file string) (string, error) {
	dir := filepath.Join(pl.dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pl.fail(file, err)
	}
	return filepath.Join(dir, file), nil
}

func (pl *Plotter) fail(name string, err error) error {
	pl.log.Warn("diagnostics plot failed", zap.String("name", name), zap.Error(err))
	return fmt.Errorf("plotting %q: %w", name, err)
}
