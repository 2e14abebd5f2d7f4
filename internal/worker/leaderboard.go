package worker

import (
	"html"
	"slices"
	"strings"
)

func sortDesc[T any](xs []T, key func(T) float64) {
	slices.SortStableFunc(xs, func(a, b T) int {
		ka, kb := key(a), key(b)
		switch {
		case ka > kb:
			return -1
		case ka < kb:
			return 1
		default:
			return 0
		}
	})
}

func section[T any](b *strings.Builder, title string, rows []T, line func(T) string) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("<b>" + html.EscapeString(title) + "</b>\n")
	for _, r := range rows {
		b.WriteString(html.EscapeString(line(r)) + "\n")
	}
	b.WriteByte('\n')
}
