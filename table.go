package mdmagic

import "strings"

// renderMarkdownTable renders rows as a pipe table with the first row as the
// header. Short rows are padded to the widest row.
func renderMarkdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	numCols := 0
	for _, row := range rows {
		numCols = max(numCols, len(row))
	}
	if numCols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = tableCell(row[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < numCols; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return b.String()
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "<br>").Replace(s)
	return strings.TrimSpace(s)
}

// trimEmptyRows drops trailing rows whose cells are all blank.
func trimEmptyRows(rows [][]string) [][]string {
	for len(rows) > 0 {
		blank := true
		for _, c := range rows[len(rows)-1] {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if !blank {
			break
		}
		rows = rows[:len(rows)-1]
	}
	return rows
}
