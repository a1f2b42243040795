// Package charts renders static PNG charts summarizing normalized readings:
// a temperature trend with a rolling-mean overlay, a humidity trend, and a
// combined overview. It consumes persisted data and has no contract back
// into the pipeline.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Sia112904/etl-weather-pipeline/internal/logger"
	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

// ErrNoData signals that there is nothing to plot; the run must abort.
var ErrNoData = errors.New("no readings to plot")

// Matplotlib's tab:red and tab:blue, to keep the charts familiar.
var (
	colorTemperature = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorHumidity    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorRolling     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// Renderer draws chart files into an output directory.
type Renderer struct {
	outputDir     string
	rollingWindow int
}

// NewRenderer creates a Renderer. rollingWindow is the number of samples in
// the temperature rolling mean; values below 1 are coerced to 1.
func NewRenderer(outputDir string, rollingWindow int) *Renderer {
	if rollingWindow < 1 {
		rollingWindow = 1
	}
	return &Renderer{outputDir: outputDir, rollingWindow: rollingWindow}
}

// Render draws all charts for the batch and returns the written file paths.
// An empty batch is a fatal condition.
func (r *Renderer) Render(readings []models.Reading) ([]string, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	times := make([]float64, len(readings))
	temps := make([]float64, len(readings))
	humidity := make([]float64, len(readings))
	for i := range readings {
		times[i] = float64(readings[i].Timestamp.Unix())
		temps[i] = readings[i].TemperatureC
		humidity[i] = readings[i].HumidityPct
	}

	logSummary("temperature_c", temps)
	logSummary("humidity_percent", humidity)

	var paths []string

	path, err := r.temperatureTrend(times, temps)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	path, err = r.humidityTrend(times, humidity)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	path, err = r.overview(times, temps, humidity)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	return paths, nil
}

func (r *Renderer) temperatureTrend(times, temps []float64) (string, error) {
	p := newTimePlot("Temperature Trend", "Temperature (°C)")

	line, err := newSeries(times, temps, colorTemperature, nil)
	if err != nil {
		return "", err
	}
	p.Add(line)
	p.Legend.Add("Temperature (°C)", line)

	if r.rollingWindow > 1 && len(temps) >= r.rollingWindow {
		rolling, err := newSeries(times, rollingMean(temps, r.rollingWindow), colorRolling,
			[]vg.Length{vg.Points(4), vg.Points(2)})
		if err != nil {
			return "", err
		}
		p.Add(rolling)
		p.Legend.Add(fmt.Sprintf("Rolling mean (%d)", r.rollingWindow), rolling)
	}

	return r.save(p, "temperature_trend.png")
}

func (r *Renderer) humidityTrend(times, humidity []float64) (string, error) {
	p := newTimePlot("Humidity Trend", "Humidity (%)")

	line, err := newSeries(times, humidity, colorHumidity, nil)
	if err != nil {
		return "", err
	}
	p.Add(line)
	p.Legend.Add("Humidity (%)", line)

	return r.save(p, "humidity_trend.png")
}

func (r *Renderer) overview(times, temps, humidity []float64) (string, error) {
	p := newTimePlot("Weather Overview", "Temperature (°C) / Humidity (%)")

	tempLine, err := newSeries(times, temps, colorTemperature, nil)
	if err != nil {
		return "", err
	}
	humidityLine, err := newSeries(times, humidity, colorHumidity, nil)
	if err != nil {
		return "", err
	}
	p.Add(tempLine, humidityLine)
	p.Legend.Add("Temperature (°C)", tempLine)
	p.Legend.Add("Humidity (%)", humidityLine)

	return r.save(p, "weather_overview.png")
}

func (r *Renderer) save(p *plot.Plot, name string) (string, error) {
	path := filepath.Join(r.outputDir, name)
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	logger.Info("saved chart %s", path)
	return path, nil
}

func newTimePlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date / Time (UTC)"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func newSeries(xs, ys []float64, c color.Color, dashes []vg.Length) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build line series: %w", err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	line.Dashes = dashes
	return line, nil
}

// rollingMean computes a centered rolling mean; edges use the available
// partial window so the output has the same length as the input.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	half := window / 2
	for i := range values {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := lo + window
		if hi > len(values) {
			hi = len(values)
		}
		out[i] = stat.Mean(values[lo:hi], nil)
	}
	return out
}

func logSummary(name string, values []float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	logger.Info("%s: n=%d mean=%.2f stddev=%.2f min=%.2f max=%.2f",
		name, len(values), stat.Mean(values, nil), stat.StdDev(values, nil), min, max)
}
