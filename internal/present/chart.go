package present

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"demandcast/pkg/contracts/domain"
)

// Chart labels
const (
	ChartXLabel = "Date"
	ChartYLabel = "Quantity"
)

// ChartTitle returns the chart title for an item
func ChartTitle(itemID string) string {
	return "Demand Forecast for Stock Code: " + itemID
}

// ChartSize is the SVG canvas size in pixels
type ChartSize struct {
	Width  int
	Height int
}

// DefaultChartSize suits an embedded web page
var DefaultChartSize = ChartSize{Width: 960, Height: 480}

const (
	marginLeft   = 70
	marginRight  = 20
	marginTop    = 40
	marginBottom = 50
	yTicks       = 5
	xTicks       = 6
)

// RenderChart draws the forecast as a standalone SVG: the uncertainty band,
// the fitted curve, observed points and a marker where the horizon starts.
func RenderChart(result domain.ForecastResult, size ChartSize) domain.Chart {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultChartSize
	}
	chart := domain.Chart{
		Title:  ChartTitle(result.ItemID),
		XLabel: ChartXLabel,
		YLabel: ChartYLabel,
	}

	pts := sortedByTime(result.Points)
	if len(pts) == 0 {
		chart.SVG = emptySVG(chart.Title, size)
		return chart
	}

	s := newScale(pts, result.Observed, size)
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-label="%s">`,
		size.Width, size.Height, size.Width, size.Height, html.EscapeString(chart.Title))
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)
	fmt.Fprintf(&b, `<text x="%d" y="24" text-anchor="middle" font-size="16" font-family="sans-serif">%s</text>`,
		size.Width/2, html.EscapeString(chart.Title))

	writeAxes(&b, s, size)

	// band: lower edge left to right, then upper edge back
	b.WriteString(`<polygon class="band" fill="#0072B2" fill-opacity="0.2" stroke="none" points="`)
	for _, p := range pts {
		fmt.Fprintf(&b, "%.1f,%.1f ", s.x(p.Timestamp), s.y(p.YhatLower))
	}
	for i := len(pts) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%.1f,%.1f ", s.x(pts[i].Timestamp), s.y(pts[i].YhatUpper))
	}
	b.WriteString(`"/>`)

	b.WriteString(`<polyline class="fit" fill="none" stroke="#0072B2" stroke-width="2" points="`)
	for _, p := range pts {
		fmt.Fprintf(&b, "%.1f,%.1f ", s.x(p.Timestamp), s.y(p.Yhat))
	}
	b.WriteString(`"/>`)

	for _, o := range result.Observed {
		fmt.Fprintf(&b, `<circle class="actual" cx="%.1f" cy="%.1f" r="2.5" fill="#000000"/>`,
			s.x(o.Timestamp), s.y(o.Quantity))
	}

	if start, ok := forecastStart(pts); ok {
		x := s.x(start)
		fmt.Fprintf(&b, `<line class="horizon" x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#D55E00" stroke-dasharray="4 4"/>`,
			x, marginTop, x, size.Height-marginBottom)
	}

	b.WriteString(`</svg>`)
	chart.SVG = b.String()
	return chart
}

type scale struct {
	t0, t1     time.Time
	ymin, ymax float64
	plotW      float64
	plotH      float64
}

func newScale(pts []domain.ForecastPoint, observed []domain.SeriesPoint, size ChartSize) scale {
	s := scale{
		t0:    pts[0].Timestamp,
		t1:    pts[len(pts)-1].Timestamp,
		ymin:  math.Inf(1),
		ymax:  math.Inf(-1),
		plotW: float64(size.Width - marginLeft - marginRight),
		plotH: float64(size.Height - marginTop - marginBottom),
	}
	for _, p := range pts {
		s.ymin = math.Min(s.ymin, p.YhatLower)
		s.ymax = math.Max(s.ymax, p.YhatUpper)
	}
	for _, o := range observed {
		s.ymin = math.Min(s.ymin, o.Quantity)
		s.ymax = math.Max(s.ymax, o.Quantity)
	}
	if s.ymax-s.ymin < 1e-9 {
		s.ymin--
		s.ymax++
	}
	pad := (s.ymax - s.ymin) * 0.05
	s.ymin -= pad
	s.ymax += pad
	return s
}

func (s scale) x(t time.Time) float64 {
	span := s.t1.Sub(s.t0)
	if span <= 0 {
		return marginLeft + s.plotW/2
	}
	return marginLeft + s.plotW*float64(t.Sub(s.t0))/float64(span)
}

func (s scale) y(v float64) float64 {
	return marginTop + s.plotH*(1-(v-s.ymin)/(s.ymax-s.ymin))
}

func writeAxes(b *strings.Builder, s scale, size ChartSize) {
	bottom := size.Height - marginBottom
	right := size.Width - marginRight

	b.WriteString(`<g class="axes" stroke="#444444" font-size="11" font-family="sans-serif">`)
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d"/>`, marginLeft, bottom, right, bottom)
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d"/>`, marginLeft, marginTop, marginLeft, bottom)

	for i := 0; i <= yTicks; i++ {
		v := s.ymin + (s.ymax-s.ymin)*float64(i)/yTicks
		y := s.y(v)
		fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#e0e0e0"/>`, marginLeft, y, right, y)
		fmt.Fprintf(b, `<text x="%d" y="%.1f" text-anchor="end" stroke="none">%s</text>`,
			marginLeft-6, y+4, formatTick(v))
	}

	span := s.t1.Sub(s.t0)
	for i := 0; i <= xTicks; i++ {
		t := s.t0.Add(time.Duration(float64(span) * float64(i) / xTicks))
		x := s.x(t)
		fmt.Fprintf(b, `<text x="%.1f" y="%d" text-anchor="middle" stroke="none">%s</text>`,
			x, bottom+16, t.Format("2006-01-02"))
		if span <= 0 {
			break
		}
	}

	fmt.Fprintf(b, `<text x="%d" y="%d" text-anchor="middle" stroke="none" font-size="13">%s</text>`,
		marginLeft+int(s.plotW)/2, size.Height-10, ChartXLabel)
	fmt.Fprintf(b, `<text x="16" y="%d" text-anchor="middle" stroke="none" font-size="13" transform="rotate(-90 16 %d)">%s</text>`,
		marginTop+int(s.plotH)/2, marginTop+int(s.plotH)/2, ChartYLabel)
	b.WriteString(`</g>`)
}

func formatTick(v float64) string {
	if math.Abs(v) >= 1000 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func emptySVG(title string, size ChartSize) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d"><text x="%d" y="24" text-anchor="middle" font-family="sans-serif">%s</text></svg>`,
		size.Width, size.Height, size.Width, size.Height, size.Width/2, html.EscapeString(title))
}

// forecastStart is the first future timestamp
func forecastStart(pts []domain.ForecastPoint) (time.Time, bool) {
	for _, p := range pts {
		if !p.Historical {
			return p.Timestamp, true
		}
	}
	return time.Time{}, false
}
