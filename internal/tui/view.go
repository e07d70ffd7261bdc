package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stchris/pstexplorer/internal/record"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	// Cursor row: subtle lighter background
	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	partialStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Background(bgBase)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

func (m Model) buildTitleBar() string {
	title := "pstexplorer"
	if m.version != "" && m.version != "dev" {
		title = fmt.Sprintf("pstexplorer [%s]", m.version)
	}
	if m.name != "" {
		title += " - " + m.name
	}
	return titleBarStyle.Render(padRight(truncateRunes(title, max(m.width-2, 1)), max(m.width-2, 0)))
}

func (m Model) headerView() string {
	b := m.browser
	var crumb, pos string
	switch b.State() {
	case StateFolders:
		crumb = b.Path()
		folders, cursor, _ := b.Folders()
		if len(folders) > 0 {
			pos = fmt.Sprintf("%d/%d folders", cursor+1, len(folders))
		}
	case StateItems, StatePreview:
		crumb = b.ItemsTitle()
		cursor, _ := b.ItemCursor()
		if n := b.ItemCount(); n > 0 {
			pos = fmt.Sprintf("%d/%d items", cursor+1, n)
		} else {
			pos = "0 items"
		}
	}

	posStyled := statsStyle.Render(pos)
	room := m.width - lipgloss.Width(posStyled) - 2
	crumbStyled := statsStyle.Render(truncateRunes(crumb, max(room, 1)))
	gap := max(m.width-lipgloss.Width(crumbStyled)-lipgloss.Width(posStyled), 0)
	return m.buildTitleBar() + "\n" + crumbStyled + strings.Repeat(" ", gap) + posStyled
}

// rowStyle picks the background of row i of the window.
func rowStyle(i int, selected bool) lipgloss.Style {
	switch {
	case selected:
		return cursorRowStyle
	case i%2 == 1:
		return altRowStyle
	default:
		return normalRowStyle
	}
}

// table joins the header, separator and rows, padding the window to
// pageSize rows.
func (m Model) table(header string, rows []string) string {
	var sb strings.Builder
	sb.WriteString(tableHeaderStyle.Render(padRight(header, m.width)))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	for i := 0; i < m.pageSize; i++ {
		sb.WriteString("\n")
		if i < len(rows) {
			sb.WriteString(rows[i])
		} else {
			sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		}
	}
	return sb.String()
}

func (m Model) folderTableView() string {
	folders, cursor, offset := m.browser.Folders()
	if len(folders) == 0 {
		return m.table("  Folder", []string{normalRowStyle.Render(padRight("  (no subfolders)", m.width))})
	}

	countWidth := 8
	nameWidth := max(m.width-countWidth-6, 10)
	header := fmt.Sprintf("  %s  %*s", padRight("Folder", nameWidth), countWidth, "Items")

	var rows []string
	end := min(offset+m.pageSize, len(folders))
	for i := offset; i < end; i++ {
		f := folders[i]
		indicator := "  "
		if i == cursor {
			indicator = "▶ "
		}
		name := f.Name
		if f.HasSubfolders {
			name += "/"
		}
		line := fmt.Sprintf("%s%s  %*d", indicator, padRight(truncateRunes(name, nameWidth), nameWidth), countWidth, f.ItemCount)
		rows = append(rows, rowStyle(i-offset, i == cursor).Render(padRight(line, m.width)))
	}
	return m.table(header, rows)
}

// itemColumns splits the row width between subject, from and date.
func (m Model) itemColumns() (subject, from int) {
	const dateWidth = 16
	rest := max(m.width-dateWidth-2-3*2, 20)
	from = rest / 3
	return rest - from, from
}

func (m Model) itemTableView() string {
	b := m.browser
	subjectWidth, fromWidth := m.itemColumns()
	header := fmt.Sprintf("  %s  %s  %s", padRight("Subject", subjectWidth), padRight("From", fromWidth), "Date")
	if b.ItemCount() == 0 {
		msg := "  (no items)"
		if b.Query() != "" {
			msg = fmt.Sprintf("  no items match %q", b.Query())
		}
		return m.table(header, []string{normalRowStyle.Render(padRight(msg, m.width))})
	}

	cursor, offset := b.ItemCursor()
	var rows []string
	for i, r := range b.VisibleItems() {
		idx := offset + i
		indicator := "  "
		if idx == cursor {
			indicator = "▶ "
		}
		line := indicator + m.itemRow(r, subjectWidth, fromWidth)
		style := rowStyle(i, idx == cursor)
		if r != nil && r.Partial() && idx != cursor {
			style = partialStyle
		}
		rows = append(rows, style.Render(padRight(line, m.width)))
	}
	return m.table(header, rows)
}

func (m Model) itemRow(r *record.Record, subjectWidth, fromWidth int) string {
	if r == nil {
		return padRight("(unreadable item)", subjectWidth)
	}
	subject := orDefault(r.Subject, noSubject)
	if r.Kind != record.KindEmail {
		subject = fmt.Sprintf("[%s] %s", r.Kind, subject)
	}
	date := "-"
	if t, ok := r.Date.Time(); ok {
		date = t.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s  %s  %s",
		padRight(truncateRunes(subject, subjectWidth), subjectWidth),
		padRight(truncateRunes(orDefault(r.From(), unknownSender), fromWidth), fromWidth),
		date)
}

func (m Model) previewView() string {
	rec, lines, scroll := m.browser.Preview()
	title := ""
	if rec != nil {
		title = "  " + truncateRunes(orDefault(rec.Subject, noSubject), max(m.width-2, 1))
	}
	q := m.browser.Query()
	var rows []string
	end := min(scroll+m.pageSize, len(lines))
	for i := scroll; i < end; i++ {
		line := padRight(lines[i], m.width)
		if q != "" {
			line = applyHighlight(line, q)
		}
		rows = append(rows, normalRowStyle.Render(line))
	}
	return m.table(title, rows)
}

func (m Model) infoLineView() string {
	width := max(m.width-2, 1)
	if m.searching {
		return statsStyle.Render(padRight(m.searchInput.View(), width))
	}
	if s := m.browser.Status(); s != "" {
		return errorStyle.Render(" " + padRight(truncateRunes("Error: "+s, width), width) + " ")
	}
	return statsStyle.Render(strings.Repeat(" ", width))
}

func (m Model) footerView() string {
	var keys []string
	switch m.browser.State() {
	case StateFolders:
		keys = []string{"↑/↓ move", "Enter items", "→ subfolders"}
		if m.browser.Depth() > 0 {
			keys = append(keys, "Esc up")
		}
		keys = append(keys, "/ search", "q quit")
	case StateItems:
		keys = []string{"↑/↓ move", "PgUp/PgDn page", "Enter open", "Esc back", "/ search", "q quit"}
	case StatePreview:
		keys = []string{"↑/↓ scroll", "PgUp/PgDn page", "Esc back", "q quit"}
	}
	if m.searching {
		keys = []string{"Enter search", "Esc cancel"}
	}

	keysStr := strings.Join(keys, " │ ")
	var posStr string
	if m.browser.State() == StatePreview {
		_, lines, scroll := m.browser.Preview()
		if len(lines) > m.pageSize {
			posStr = fmt.Sprintf(" line %d/%d ", scroll+1, len(lines))
		}
	}
	gap := max(m.width-lipgloss.Width(keysStr)-lipgloss.Width(posStr)-2, 0)
	return footerStyle.Render(truncateToWidth(keysStr+strings.Repeat(" ", gap)+posStr, max(m.width-2, 0)))
}
