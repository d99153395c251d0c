package metrics

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"crossbot/src/datamodels"
)

var (
	buyColor  = color.RGBA{G: 160, A: 255}
	sellColor = color.RGBA{R: 200, A: 255}
)

// ReportPlotter renders backtest reports to PNG files.
type ReportPlotter struct {
	outputDir string
	width     vg.Length
	height    vg.Length
}

func NewReportPlotter() *ReportPlotter {
	return &ReportPlotter{
		width:  10 * vg.Inch,
		height: 6 * vg.Inch,
	}
}

func (pb *ReportPlotter) WithFileOutput(dir string) *ReportPlotter {
	pb.outputDir = dir
	return pb
}

func (pb *ReportPlotter) WithSize(width, height vg.Length) *ReportPlotter {
	pb.width = width
	pb.height = height
	return pb
}

// PlotEquityCurve draws the cumulative strategy return and returns the written file.
func (pb *ReportPlotter) PlotEquityCurve(report *datamodels.BacktestReport) (string, error) {
	if len(report.Backtest) == 0 {
		return "", fmt.Errorf("no backtest rows to plot")
	}
	p := equityPlot(report)
	return pb.save(p, fmt.Sprintf("%s_equity_curve.png", report.Symbol))
}

// PlotSignals draws the close price with both moving averages and marks buys and sells.
func (pb *ReportPlotter) PlotSignals(report *datamodels.BacktestReport) (string, error) {
	if len(report.Signals) == 0 {
		return "", fmt.Errorf("no signals to plot")
	}
	p, err := signalPlot(report)
	if err != nil {
		return "", err
	}
	return pb.save(p, fmt.Sprintf("%s_signals.png", report.Symbol))
}

func (pb *ReportPlotter) save(p *plot.Plot, name string) (string, error) {
	if pb.outputDir == "" {
		return "", fmt.Errorf("plot output directory is not set")
	}
	if err := os.MkdirAll(pb.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create plot directory: %w", err)
	}
	filename := filepath.Join(pb.outputDir, name)
	if err := p.Save(pb.width, pb.height, filename); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	slog.Info("Plot saved", "path", filename)
	return filename, nil
}

func equityPlot(report *datamodels.BacktestReport) *plot.Plot {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s equity curve", report.Symbol)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Cumulative return"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(report.Backtest))
	for i, point := range report.Backtest {
		pts[i].X = float64(point.Timestamp.Unix())
		pts[i].Y = point.CumulativeReturn
	}
	if err := plotutil.AddLines(p, "Strategy", pts); err != nil {
		slog.Error("Error adding equity line", "error", err)
	}
	return p
}

func signalPlot(report *datamodels.BacktestReport) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s moving average crossover (%d/%d)",
		report.Symbol, report.Strategy.ShortWindow, report.Strategy.LongWindow)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	closes := make(plotter.XYs, len(report.Signals))
	shortMa := make(plotter.XYs, len(report.Signals))
	longMa := make(plotter.XYs, len(report.Signals))
	var buys, sells plotter.XYs
	for i, s := range report.Signals {
		x := float64(s.Timestamp.Unix())
		closes[i] = plotter.XY{X: x, Y: s.Close}
		shortMa[i] = plotter.XY{X: x, Y: s.ShortMa}
		longMa[i] = plotter.XY{X: x, Y: s.LongMa}
		switch s.Signal {
		case datamodels.SignalBuy:
			buys = append(buys, plotter.XY{X: x, Y: s.Close})
		case datamodels.SignalSell:
			sells = append(sells, plotter.XY{X: x, Y: s.Close})
		}
	}

	if err := plotutil.AddLines(p,
		"Close", closes,
		fmt.Sprintf("Short MA (%d)", report.Strategy.ShortWindow), shortMa,
		fmt.Sprintf("Long MA (%d)", report.Strategy.LongWindow), longMa,
	); err != nil {
		return nil, fmt.Errorf("failed to add price lines: %w", err)
	}

	for _, marker := range []struct {
		name   string
		points plotter.XYs
		shape  draw.GlyphDrawer
		color  color.Color
	}{
		{"Buy", buys, draw.TriangleGlyph{}, buyColor},
		{"Sell", sells, draw.CrossGlyph{}, sellColor},
	} {
		if len(marker.points) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(marker.points)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s markers: %w", marker.name, err)
		}
		scatter.GlyphStyle.Shape = marker.shape
		scatter.GlyphStyle.Color = marker.color
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add(marker.name, scatter)
	}
	return p, nil
}
