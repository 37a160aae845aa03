// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/transcat/internal/format"
)

var (
	// AccentColor is used for titles and borders.
	AccentColor = lipgloss.Color("#7D9EC0")
	// SpendColor marks negative amounts and errors.
	SpendColor = lipgloss.Color("#E06C75")
	// IncomeColor marks positive amounts and completed actions.
	IncomeColor = lipgloss.Color("#98C379")
	// NoticeColor marks warnings.
	NoticeColor = lipgloss.Color("#E5C07B")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor).
			MarginBottom(1)

	// BoxStyle frames a classification response.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(0, 1)

	// TableHeaderStyle underlines the totals header.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(AccentColor)

	// TableCellStyle pads the category column.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	spendStyle  = lipgloss.NewStyle().Foreground(SpendColor)
	incomeStyle = lipgloss.NewStyle().Foreground(IncomeColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
	InfoIcon    = "·"
	MatchIcon   = "🔗"
	PredictIcon = "🔮"
)

var statusStyles = map[string]lipgloss.Style{
	SuccessIcon: incomeStyle,
	ErrorIcon:   spendStyle,
	WarningIcon: lipgloss.NewStyle().Foreground(NoticeColor),
	InfoIcon:    lipgloss.NewStyle().Foreground(AccentColor),
}

func status(icon, message string) string {
	return statusStyles[icon].Render(icon + " " + message)
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string { return status(SuccessIcon, message) }

// FormatError formats an error message with icon.
func FormatError(message string) string { return status(ErrorIcon, message) }

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string { return status(WarningIcon, message) }

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string { return status(InfoIcon, message) }

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}

// RenderResponse boxes a formatted classification response, titled by
// whether it holds detector matches or predictions.
func RenderResponse(resp *format.Response) string {
	title := PredictIcon + " Predicted"
	if resp.Existing() {
		title = MatchIcon + " Already known"
	}
	title = fmt.Sprintf("%s (%d)", title, len(resp.Indexes))
	return RenderBox(title, resp.Message)
}

// RenderTotals renders per-category totals sorted by category name.
func RenderTotals(totals map[string]decimal.Decimal) string {
	names := make([]string, 0, len(totals))
	width := len("Category")
	for name := range totals {
		names = append(names, name)
		width = max(width, lipgloss.Width(name))
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(TableCellStyle.Render(pad("Category", width)) + "Total"))
	b.WriteString("\n")
	for _, name := range names {
		b.WriteString(TableCellStyle.Render(pad(name, width)))
		b.WriteString(renderAmount(totals[name]))
		b.WriteString("\n")
	}
	return b.String()
}

// renderAmount colours spending and income differently.
func renderAmount(d decimal.Decimal) string {
	text := d.StringFixed(2)
	if d.IsNegative() {
		return spendStyle.Render(text)
	}
	return incomeStyle.Render(text)
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
