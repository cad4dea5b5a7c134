package session

import (
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

const wordsPerPage = 250

// Stats summarizes free-text content.
type Stats struct {
	Words          int `json:"words"`
	Characters     int `json:"characters"`
	EstimatedPages int `json:"estimated_pages"`
}

func ContentStats(content string) Stats {
	words := len(strings.Fields(content))
	return Stats{
		Words:          words,
		Characters:     utf8.RuneCountInString(content),
		EstimatedPages: max(1, words/wordsPerPage),
	}
}

// humanize.IBytes would print "KiB"; operators see 1024-based "KB".
var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize prints n with binary units and at most two decimals.
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v, i := float64(n), 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return humanize.FtoaWithDigits(v, 2) + " " + sizeUnits[i]
}
