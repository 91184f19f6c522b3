package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/microsim/cosem/pkg/ndarray"
)

// stdout receives command output; tests swap it.
var stdout io.Writer = os.Stdout

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared by the commands and the view picker.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

// status prints msg behind a coloured icon.
func status(icon string, color lipgloss.Color, msg string) {
	fmt.Fprintln(stdout, lipgloss.NewStyle().Foreground(color).Render(icon)+" "+msg)
}

func printSuccess(format string, args ...any) { status("✓", colorGreen, fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { status("›", colorGray, fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	status("!", colorYellow, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// PrintError writes err to stderr behind the error icon.
func PrintError(err error) {
	icon := lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	fmt.Fprintln(os.Stderr, icon+" "+err.Error())
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }

// renderTable draws rows under headers; the first column is highlighted.
func renderTable(headers []string, rows [][]string) string {
	first := lipgloss.NewStyle().Foreground(colorCyan)
	plain := lipgloss.NewStyle()
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case col == 0:
				return first
			}
			return plain
		}).
		Render()
}

// arrayStats describes an array on one line, e.g.
// "source=2 z=4 y=4 x=4 · 128 voxels · 1.0 kB · 0 to 255".
func arrayStats(a *ndarray.Array) string {
	dims := make([]string, len(a.Dims))
	for i, d := range a.Dims {
		dims[i] = d + "=" + strconv.Itoa(a.Shape[i])
	}
	parts := []string{
		strings.Join(dims, " "),
		humanize.Comma(int64(a.Len())) + " voxels",
		humanize.Bytes(uint64(a.Len()) * 8),
	}
	if a.Len() > 0 {
		lo, hi := a.MinMax()
		parts = append(parts, humanize.Ftoa(lo)+" to "+humanize.Ftoa(hi))
	}
	return strings.Join(parts, " · ")
}

func printArrayStats(a *ndarray.Array) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(arrayStats(a)))
}
