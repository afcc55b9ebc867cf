package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

var (
	reDoubleTA = regexp.MustCompile(`(?i)TA;TA`)
	reCours    = regexp.MustCompile(`(?i)^Cours\s*-\s*`)
	reGroup1   = regexp.MustCompile(`(?i)^Cours\s*Gr\s*1\s*-\s*`)
	reGroup2   = regexp.MustCompile(`(?i)^Cours\s*Gr\s*2\s*-\s*`)

	colorRules = []struct {
		re    *regexp.Regexp
		color string
	}{
		{regexp.MustCompile(`(?i)^TA\b`), constants.ScrapeColorAbbrev},
		{regexp.MustCompile(`(?i)^Soutien\s*-`), constants.ScrapeColorSupport},
		{regexp.MustCompile(`(?i)^Information\s*-`), constants.ScrapeColorInformation},
		{regexp.MustCompile(`(?i)^Oral\s*-`), constants.ScrapeColorOral},
	}
)

// Column positions in an agenda table row.
const (
	colTitle = 1
	colDate  = 4
	colStart = 5
	colEnd   = 6
	minCols  = 7
)

// CleanTitle normalises a raw agenda title.
func CleanTitle(raw string) string {
	t := norm.NFC.String(strings.Join(strings.Fields(raw), " "))
	t = strings.TrimSpace(reDoubleTA.ReplaceAllString(t, ""))
	t = reCours.ReplaceAllString(t, "")
	t = reGroup1.ReplaceAllString(t, "Gr1 - ")
	t = reGroup2.ReplaceAllString(t, "Gr2 - ")
	return strings.TrimSpace(t)
}

// ColorFor picks the event colour from a cleaned title.
func ColorFor(title string) string {
	for _, r := range colorRules {
		if r.re.MatchString(title) {
			return r.color
		}
	}
	return constants.ScrapeColorDefault
}

// ParseTable extracts events from an agenda table page. Rows with an
// unreadable date or time, or a non-positive duration, are skipped.
func ParseTable(doc *html.Node, newID func() string) []models.Event {
	rows := findAll(doc, func(n *html.Node) bool {
		id, _ := attr(n, "id")
		return n.Data == "tr" && strings.Contains(id, "TableDatas")
	})

	var events []models.Event
	for _, row := range rows {
		cells := findAll(row, tag("td"))
		if len(cells) < minCols {
			continue
		}

		title := CleanTitle(textContent(cells[colTitle]))
		day, ok := parseDate(textContent(cells[colDate]))
		if !ok {
			continue
		}
		startMin, ok := parseClock(textContent(cells[colStart]))
		if !ok {
			continue
		}
		endMin, ok := parseClock(textContent(cells[colEnd]))
		if !ok {
			continue
		}
		duration := endMin - startMin
		if duration <= 0 {
			continue
		}

		events = append(events, models.Event{
			ID:         newID(),
			Title:      title,
			Start:      day.Add(time.Duration(startMin) * time.Minute),
			Duration:   duration,
			Recurrence: constants.RecurrenceNone,
			Color:      ColorFor(title),
		})
	}
	return events
}

// parseDate reads dd/mm/yyyy.
func parseDate(s string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	d, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	y, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// parseClock reads HHhMM (or HH:MM) as minutes after midnight.
func parseClock(s string) (int, bool) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.Replace(s, "h", ":", 1)
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
