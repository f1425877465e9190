package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"
)

// Palette colors, dark-background variants.
const (
	colorPrimary = "#7aa2f7"
	colorMuted   = "#737aa2"
	colorText    = "#c0caf5"
	colorError   = "#f7768e"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool

	Summary   lipgloss.Style
	Muted     lipgloss.Style
	Data      lipgloss.Style
	Error     lipgloss.Style
	Hint      lipgloss.Style
	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer for w. Styling is enabled when writing
// to a TTY, or when forceStyled is true, unless NO_COLOR is set.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, tty := terminalInfo(w)
	styled := (tty || forceStyled) && os.Getenv("NO_COLOR") == ""

	r := &Renderer{width: width, styled: styled}
	if !styled {
		lipgloss.SetColorProfile(termenv.Ascii)
		plain := lipgloss.NewStyle()
		r.Summary, r.Muted, r.Data, r.Error, r.Hint = plain, plain, plain, plain, plain
		r.Header, r.Cell, r.CellMuted = plain, plain, plain
		return r
	}

	lipgloss.SetColorProfile(termenv.TrueColor)
	r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary)).Bold(true)
	r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	r.Data = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText))
	r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true)
	r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)).Italic(true)
	r.Header = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText)).Bold(true)
	r.Cell = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText))
	r.CellMuted = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80
	if f, ok := w.(*os.File); ok {
		if w, _, err := term.GetSize(f.Fd()); err == nil && w >= 40 {
			width = w
		}
		isTTY = term.IsTerminal(f.Fd())
	}
	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}
	r.renderData(&b, NormalizeData(resp.Data))

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")
	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderTable(b, d)
	case map[string]any:
		r.renderObject(b, d)
	case []any:
		for _, item := range d {
			b.WriteString(r.Data.Render("• " + formatCell(item)))
			b.WriteString("\n")
		}
	case nil:
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")
	default:
		b.WriteString(r.Data.Render(fmt.Sprintf("%v", data)))
		b.WriteString("\n")
	}
}

// Column priority for table rendering (lower = higher priority).
var columnPriority = map[string]int{
	"uid":            1,
	"id":             1,
	"name":           2,
	"title":          2,
	"type":           3,
	"state":          3,
	"favorite":       4,
	"photo_count":    5,
	"taken_at_local": 5,
	"taken_at":       5,
	"fetched_at":     6,
	"error":          7,
}

var mutedColumns = map[string]bool{
	"uid":        true,
	"id":         true,
	"hash":       true,
	"fetched_at": true,
}

var skipColumns = map[string]bool{
	"thumb": true,
	"files": true,
	"slug":  true,
}

type column struct {
	key      string
	priority int
	width    int
}

func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	columns := r.selectColumns(detectColumns(data))
	if len(columns) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			if col < len(columns) && mutedColumns[columns[col].key] {
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = formatHeader(col.key)
	}
	t.Headers(headers...)

	for _, item := range data {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatCell(item[col.key])
		}
		t.Row(row...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

// detectColumns returns the scalar columns of the first row by priority.
func detectColumns(data []map[string]any) []column {
	var cols []column
	for key, val := range data[0] {
		if skipColumns[key] {
			continue
		}
		switch val.(type) {
		case map[string]any, []any, []map[string]any:
			continue
		}
		p, ok := columnPriority[key]
		if !ok {
			p = 10
		}
		width := len(formatHeader(key))
		for _, item := range data {
			width = max(width, len(formatCell(item[key])))
		}
		cols = append(cols, column{key: key, priority: p, width: width})
	}
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].priority != cols[j].priority {
			return cols[i].priority < cols[j].priority
		}
		return cols[i].key < cols[j].key
	})
	return cols
}

// selectColumns drops the lowest priority columns until the rest fit.
func (r *Renderer) selectColumns(cols []column) []column {
	const padding = 2
	total := 0
	for i, col := range cols {
		total += col.width + padding
		if total > r.width && i > 0 {
			return cols[:i]
		}
	}
	return cols
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labelWidth := 0
	for _, k := range keys {
		labelWidth = max(labelWidth, len(formatHeader(k)))
	}
	for _, k := range keys {
		label := fmt.Sprintf("%-*s", labelWidth, formatHeader(k))
		b.WriteString(r.Muted.Render(label))
		b.WriteString("  ")
		b.WriteString(r.Data.Render(formatCell(data[k])))
		b.WriteString("\n")
	}
}

func formatHeader(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatCell(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "yes"
		}
		return ""
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.4f", v)
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			if t.IsZero() || t.Year() <= 1 {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		}
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatCell(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
