package events

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/models"
)

type EventListCmd struct {
	Type string `short:"t" help:"Only events of this type (id or name)."`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
	events := ctx.Desk.Store().Events()
	if c.Type != "" {
		et, err := ctx.ResolveType(c.Type)
		if err != nil {
			return err
		}
		filtered := events[:0]
		for _, ev := range events {
			if ev.TypeID == et.ID {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	if len(events) == 0 {
		ctx.Println("No events found.")
		return nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	for _, ev := range events {
		ctx.Println(cli.FormatEvent(ev, ctx.TypeName(ev.TypeID)))
	}
	return nil
}

// titles adapts events to fuzzy.Source.
type titles []models.Event

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

type EventFindCmd struct {
	Query string `arg:"" help:"Text to look for in event titles."`
	Limit int    `short:"n" help:"Maximum number of results." default:"10"`
}

func (c *EventFindCmd) Run(ctx *cli.Context) error {
	events := titles(ctx.Desk.Store().Events())
	matches := fuzzy.FindFrom(c.Query, events)
	if len(matches) == 0 {
		ctx.Printf("No events match %q.\n", c.Query)
		return nil
	}
	if c.Limit > 0 && len(matches) > c.Limit {
		matches = matches[:c.Limit]
	}
	for _, m := range matches {
		ev := events[m.Index]
		ctx.Println(cli.FormatEvent(ev, ctx.TypeName(ev.TypeID)))
	}
	return nil
}
