package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/stchris/pstexplorer/internal/record"
)

// applyHighlight wraps all case-insensitive occurrences of term in text with
// highlightStyle. It works on runes so that case folding that changes byte
// length does not shift the match positions.
func applyHighlight(text, term string) string {
	if term == "" || text == "" {
		return text
	}
	textRunes := []rune(text)
	lowerRunes := []rune(strings.ToLower(text))
	termRunes := []rune(strings.ToLower(term))
	if len(lowerRunes) != len(textRunes) {
		return text
	}
	var sb strings.Builder
	prev := 0
	for i := 0; i <= len(lowerRunes)-len(termRunes); i++ {
		if string(lowerRunes[i:i+len(termRunes)]) != string(termRunes) {
			continue
		}
		sb.WriteString(string(textRunes[prev:i]))
		sb.WriteString(highlightStyle.Render(string(textRunes[i : i+len(termRunes)])))
		i += len(termRunes) - 1
		prev = i + 1
	}
	if prev == 0 {
		return text
	}
	sb.WriteString(string(textRunes[prev:]))
	return sb.String()
}

// formatBytes formats a byte count as a human-readable string (e.g., "1.5 KB").
func formatBytes(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// padRight pads a string with spaces to fill width terminal cells.
// Uses lipgloss.Width to correctly handle ANSI codes and full-width characters.
func padRight(s string, width int) string {
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateToWidth returns the prefix of s that fits within maxWidth visual
// columns, keeping escape sequences intact.
func truncateToWidth(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "")
}

// truncateRunes truncates a string to fit within maxWidth terminal cells.
// Line breaks and tabs become spaces first so a row stays on one line.
func truncateRunes(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")

	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// wrapText wraps text to fit within width terminal cells, preferring to
// break at spaces.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1
			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			// Prefer breaking at a space in the latter half of the line.
			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				// A single rune wider than the line.
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return result
}

// calculateScrollOffset returns the scroll offset that keeps cursor inside a
// window of pageSize rows, moving the window as little as possible.
func calculateScrollOffset(cursor, currentOffset, pageSize int) int {
	if cursor < currentOffset {
		return cursor
	}
	if cursor >= currentOffset+pageSize {
		return cursor - pageSize + 1
	}
	return currentOffset
}

// Placeholders for empty fields in item rows.
const (
	noSubject     = "(no subject)"
	unknownSender = "(unknown sender)"
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// previewText renders a fully decoded record as the preview pane text:
// header fields, kind specific fields, attachments, then the body.
func previewText(r *record.Record) string {
	var sb strings.Builder
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%-12s %s\n", label+":", value)
		}
	}

	field("Subject", orDefault(r.Subject, noSubject))
	switch {
	case r.Email != nil:
		from := r.Email.From
		if r.Email.SenderAddress != "" && r.Email.SenderAddress != from {
			from = fmt.Sprintf("%s <%s>", from, r.Email.SenderAddress)
		}
		field("From", from)
		field("To", r.Email.To)
		field("Cc", r.Email.Cc)
		field("Bcc", r.Email.Bcc)
	case r.Calendar != nil:
		field("Organizer", r.Calendar.Organizer)
		field("Location", r.Calendar.Location)
		field("Start", r.Calendar.Start.String())
		field("End", r.Calendar.End.String())
		if r.Calendar.AllDay {
			field("All day", "yes")
		}
	case r.Contact != nil:
		field("Name", r.Contact.DisplayName)
		field("File as", r.Contact.FileAs)
		field("Company", r.Contact.Company)
		field("Email", r.Contact.EmailAddress)
		field("Business", r.Contact.BusinessPhone)
		field("Home", r.Contact.HomePhone)
		field("Mobile", r.Contact.MobilePhone)
	case r.Task != nil:
		field("Status", r.Task.Status.String())
		field("Complete", fmt.Sprintf("%.0f%%", r.Task.PercentComplete*100))
		field("Due", r.Task.Due.String())
		field("Owner", r.Task.Owner)
	}
	field("Date", orDefault(r.Date.String(), "unknown"))
	field("Folder", r.FolderPath)
	field("Type", fmt.Sprintf("%s (%s)", r.Kind, orDefault(r.MessageClass, "IPM.Note")))

	if len(r.Attachments) > 0 {
		field("Attachments", fmt.Sprintf("%d", len(r.Attachments)))
		for _, a := range r.Attachments {
			name := orDefault(a.Filename, "(unnamed)")
			fmt.Fprintf(&sb, "  %s  %s\n", name, formatBytes(a.Size))
		}
	}
	if r.DecodeErr != nil {
		field("Warning", "some fields could not be decoded: "+strings.Join(r.DecodeErr.Fields, ", "))
	}

	sb.WriteString("\n")
	if strings.TrimSpace(r.Body) == "" {
		sb.WriteString("(no body)")
	} else {
		sb.WriteString(strings.TrimRight(r.Body, "\r\n \t"))
	}
	return sb.String()
}
