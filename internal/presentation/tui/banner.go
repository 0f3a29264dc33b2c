package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the curator ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___                 _             ", "#818cf8"},
		{"  / __|_  _ _ _ __ _ _| |_ ___ _ _   ", "#a78bfa"},
		{" | (__| || | '_/ _` |  _/ _ \\ '_|  ", "#c084fc"},
		{"  \\___|\\_,_|_| \\__,_|\\__\\___/_|    ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
