package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SessionSummary is printed when the chat screen exits.
type SessionSummary struct {
	Room     string
	Peer     string
	Sent     int
	Received int
	Duration time.Duration
}

func SessionSummaryView(title string, s SessionSummary) string {
	room := s.Room
	if room == "" {
		room = "-"
	}

	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Room", room},
		{"Peer", s.Peer},
		{"Sent", strconv.Itoa(s.Sent)},
		{"Received", strconv.Itoa(s.Received)},
		{"Duration", s.Duration.Round(time.Second).String()},
	})
	return t.Render()
}

func RenderSessionSummary(title string, s SessionSummary) {
	fmt.Println(SessionSummaryView(title, s))
}
