package present

import (
	"fmt"
	"math"
	"strings"

	"demandcast/pkg/contracts/domain"
)

// ASCII chart glyphs
const (
	glyphActual = '•'
	glyphFit    = '─'
	glyphBand   = '░'
	glyphFuture = '*'
)

// RenderASCII draws a terminal chart of width by height cells. Columns are
// buckets of time-ordered rows; each column shows the band, the fitted
// value and any observed value falling in it.
func RenderASCII(result domain.ForecastResult, width, height int) string {
	pts := sortedByTime(result.Points)
	if len(pts) == 0 || width < 10 || height < 3 {
		return ""
	}

	const gutter = 9
	cols := width - gutter
	if cols > len(pts) {
		cols = len(pts)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = math.Min(lo, p.YhatLower)
		hi = math.Max(hi, p.YhatUpper)
	}
	for _, o := range result.Observed {
		lo = math.Min(lo, o.Quantity)
		hi = math.Max(hi, o.Quantity)
	}
	if hi-lo < 1e-9 {
		lo--
		hi++
	}
	row := func(v float64) int {
		r := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
		return min(max(r, 0), height-1)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}

	// column of each row timestamp, for placing observations
	column := make(map[int64]int, len(pts))

	for c := 0; c < cols; c++ {
		from := c * len(pts) / cols
		to := (c + 1) * len(pts) / cols
		bucket := pts[from:to]

		var yhat, lower, upper float64
		future := false
		for _, p := range bucket {
			yhat += p.Yhat
			lower += p.YhatLower
			upper += p.YhatUpper
			future = future || !p.Historical
		}
		n := float64(len(bucket))
		yhat, lower, upper = yhat/n, lower/n, upper/n

		for r := row(upper); r <= row(lower); r++ {
			grid[r][c] = glyphBand
		}
		if future {
			grid[row(yhat)][c] = glyphFuture
		} else {
			grid[row(yhat)][c] = glyphFit
		}
		for _, p := range bucket {
			column[p.Timestamp.UnixNano()] = c
		}
	}
	for _, o := range result.Observed {
		if c, ok := column[o.Timestamp.UnixNano()]; ok {
			grid[row(o.Quantity)][c] = glyphActual
		}
	}

	var b strings.Builder
	for r := range grid {
		label := ""
		switch r {
		case 0:
			label = formatTick(hi)
		case height - 1:
			label = formatTick(lo)
		case (height - 1) / 2:
			label = formatTick((hi + lo) / 2)
		}
		fmt.Fprintf(&b, "%*s │%s\n", gutter-2, label, string(grid[r]))
	}
	fmt.Fprintf(&b, "%*s └%s\n", gutter-2, "", strings.Repeat("─", cols))

	first := pts[0].Timestamp.Format(DateLayout)
	last := pts[len(pts)-1].Timestamp.Format(DateLayout)
	pad := cols - len(first) - len(last)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(&b, "%*s  %s%s%s", gutter-2, "", first, strings.Repeat(" ", pad), last)
	return b.String()
}
