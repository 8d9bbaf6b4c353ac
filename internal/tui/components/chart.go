package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[min(max(idx, 0), len(sparkBlocks)-1)])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart with a labelled Y axis. When there
// are more values than fit, they are sampled evenly.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	step := chartTickStep(peak)
	for int(math.Ceil(peak/step)) > max(height/2, 2) {
		step *= 2
	}
	ceiling := math.Ceil(peak/step) * step
	intervals := max(int(math.Round(ceiling/step)), 1)
	rowsPerTick := max(height/intervals, 2)
	chartH := rowsPerTick * intervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, intervals)
	for i := 1; i <= intervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(step * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	n := len(values)
	gap := 1
	if n == 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	if barW < 2 && n > 1 {
		values, labels = sample(values, labels, max((chartW+1)/3, 2))
		n = len(values)
		barW = 2
	}
	barW = min(barW, 6)
	axisLen := n*barW + max(0, n-1)*gap

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)
	partial := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		barColor := color
		if float64(row)/float64(chartH) > 0.8 {
			barColor = t.AccentBright
		}
		barStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", yLabelW, tickLabels[row])))
		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blankStyle.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case v >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(partial[min(max(idx, 1), 8)]), barW)))
			default:
				b.WriteString(blankStyle.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(blankStyle.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(strings.TrimRight(axisLabels(labels, barW, gap, axisLen), " ")))
	}
	return b.String()
}

// axisLabels spreads labels under their bars, skipping any that would
// overlap the previous one. The last label is always kept when it fits.
func axisLabels(labels []string, barW, gap, axisLen int) string {
	buf := []byte(strings.Repeat(" ", axisLen))
	n := len(labels)
	labelStep := max(1, (n*8)/(axisLen+1))

	lastEnd := -1
	for i := 0; i < n; i += labelStep {
		pos := i * (barW + gap)
		lbl := labels[i]
		end := min(pos+len(lbl), axisLen)
		if pos <= lastEnd || end-pos < 3 {
			continue
		}
		copy(buf[pos:end], lbl[:end-pos])
		lastEnd = end + 1
	}
	if n > 1 {
		lbl := labels[n-1]
		pos := (n - 1) * (barW + gap)
		if pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos >= 0 && pos > lastEnd {
			copy(buf[pos:], lbl)
		}
	}
	return string(buf)
}

// sample picks k evenly spaced values (and their labels, when present).
func sample(values []float64, labels []string, k int) ([]float64, []string) {
	n := len(values)
	out := make([]float64, k)
	var outLabels []string
	if len(labels) == n {
		outLabels = make([]string, k)
	}
	for i := range out {
		src := i * (n - 1) / (k - 1)
		out[i] = values[src]
		if outLabels != nil {
			outLabels[i] = labels[src]
		}
	}
	return out, outLabels
}

// chartTickStep computes a round tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	for _, u := range []struct {
		div    float64
		suffix string
	}{{1e9, "B"}, {1e6, "M"}, {1e3, "k"}} {
		if v >= u.div {
			if v == math.Trunc(v/u.div)*u.div {
				return fmt.Sprintf("%.0f%s", v/u.div, u.suffix)
			}
			return fmt.Sprintf("%.1f%s", v/u.div, u.suffix)
		}
	}
	if v >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
