package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"ctastats/internal/aggregate"
	"ctastats/internal/model"
)

var ErrEmptyMatrix = errors.New("render: matrix has no rows")

const (
	defaultChartWidth  = 10 * vg.Inch
	defaultChartHeight = 6 * vg.Inch
	maxBarWidth        = vg.Length(24)
)

var (
	colorApproved  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	colorCommitted = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

type ChartOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Labels renames status columns in the legend.
	Labels map[string]string
	// ValueLabels prints each bar's count above it.
	ValueLabels bool
}

// Chart draws one bar group per matrix row and one bar series per status
// column, and writes the figure as PNG.
func Chart(w io.Writer, m aggregate.Matrix, opts ChartOptions) error {
	if m.Len() == 0 {
		return ErrEmptyMatrix
	}
	if opts.Width <= 0 {
		opts.Width = defaultChartWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultChartHeight
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle(m.Dimension(), "")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "Number of companies"
	p.X.Label.Text = axisLabel(m.Dimension())
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	rows := m.Rows()
	columns := m.Columns()
	barWidth := opts.Width * 0.7 / vg.Length(len(rows)*len(columns))
	if barWidth > maxBarWidth {
		barWidth = maxBarWidth
	}

	for i, column := range columns {
		values := make(plotter.Values, len(rows))
		for j, row := range rows {
			values[j] = float64(m.Count(row, column))
		}

		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return fmt.Errorf("render: bars for %s: %w", column, err)
		}
		bars.Color = seriesColor(column, i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(len(columns)-1)/2) * barWidth
		p.Add(bars)
		p.Legend.Add(label(column, opts.Labels), bars)

		if opts.ValueLabels {
			labels, err := valueLabels(values)
			if err != nil {
				return fmt.Errorf("render: labels for %s: %w", column, err)
			}
			labels.Offset = vg.Point{X: bars.Offset, Y: vg.Points(2)}
			p.Add(labels)
		}
	}

	p.NominalX(rows...)
	if m.Dimension() == model.DimCountry {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	writer, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return fmt.Errorf("render: write png: %w", err)
	}
	return nil
}

// ChartFiles writes one PNG per page as <prefix>-01.png, <prefix>-02.png, ...
// and returns the paths in page order.
func ChartFiles(dir, prefix string, pages []aggregate.Matrix, opts ChartOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(pages))
	for i, page := range pages {
		path := filepath.Join(dir, fmt.Sprintf("%s-%02d.png", prefix, i+1))
		if err := chartFile(path, page, opts); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func chartFile(path string, m aggregate.Matrix, opts ChartOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Chart(file, m, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// DefaultTitle names the chart after its grouping; country is only used for
// the per-year view.
func DefaultTitle(dim model.Dimension, country string) string {
	if dim == model.DimYear {
		if country == "" {
			return "Companies with approved and committed targets per year"
		}
		return fmt.Sprintf("(%s) Companies with approved and committed targets per year", country)
	}
	return "Number of companies with approved and committed target status per country"
}

func axisLabel(dim model.Dimension) string {
	if dim == model.DimYear {
		return "Year"
	}
	return "Country"
}

func label(column string, labels map[string]string) string {
	if renamed, ok := labels[column]; ok {
		return renamed
	}
	return column
}

func seriesColor(column string, index int) color.Color {
	switch model.TargetStatus(column) {
	case model.StatusTargetsSet:
		return colorApproved
	case model.StatusCommitted:
		return colorCommitted
	}
	shade := uint8(80 + (index*40)%140)
	return color.Gray{Y: shade}
}

func valueLabels(values plotter.Values) (*plotter.Labels, error) {
	xys := make(plotter.XYs, len(values))
	text := make([]string, len(values))
	for i, value := range values {
		xys[i] = plotter.XY{X: float64(i), Y: value}
		text[i] = strconv.Itoa(int(value))
	}
	return plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: text})
}
