package events

import (
	"context"
	"fmt"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/models"
)

type EventEditCmd struct {
	ID         string  `arg:"" help:"Event id or id prefix."`
	Title      *string `help:"New title."`
	Start      *string `short:"s" help:"New start (YYYY-MM-DDTHH:MM)."`
	Duration   *string `short:"d" help:"New duration in minutes."`
	Recurrence *string `short:"r" help:"New recurrence (none|daily|weekly|monthly|yearly)."`
	Type       *string `short:"t" help:"New event type id or name; empty to clear."`
	Color      *string `short:"c" help:"New colour (#RRGGBB)."`
}

func (c *EventEditCmd) Run(ctx *cli.Context) error {
	ev, err := ctx.ResolveEvent(c.ID)
	if err != nil {
		return err
	}

	patch := calendar.EventPatch{
		Title:      c.Title,
		Start:      c.Start,
		Duration:   c.Duration,
		Recurrence: c.Recurrence,
		Color:      c.Color,
	}
	if c.Type != nil {
		id := ""
		if *c.Type != "" {
			et, err := ctx.ResolveType(*c.Type)
			if err != nil {
				return err
			}
			id = et.ID
		}
		patch.TypeID = &id
	}

	updated, _, err := ctx.Desk.UpdateEvent(context.Background(), ev.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	ctx.Printf("✓ Updated %s\n", cli.FormatEvent(updated, ctx.TypeName(updated.TypeID)))
	return nil
}

type EventMoveCmd struct {
	ID    string `arg:"" help:"Event id or id prefix."`
	Start string `arg:"" help:"New start (YYYY-MM-DDTHH:MM)."`
}

func (c *EventMoveCmd) Run(ctx *cli.Context) error {
	ev, err := ctx.ResolveEvent(c.ID)
	if err != nil {
		return err
	}
	start, err := models.ParseWallClock(c.Start)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", c.Start, err)
	}
	if _, err := ctx.Desk.MoveEvent(context.Background(), ev.ID, start); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	ctx.Printf("✓ Moved \"%s\" to %s\n", ev.Title, models.FormatWallClock(start))
	return nil
}

// EventResizeCmd changes a duration the way dragging the bottom edge does:
// the change snaps to 15-minute steps and never drops below the minimum.
type EventResizeCmd struct {
	ID string `arg:"" help:"Event id or id prefix."`
	By int    `arg:"" help:"Minutes to add (negative to shrink)."`
}

func (c *EventResizeCmd) Run(ctx *cli.Context) error {
	ev, err := ctx.ResolveEvent(c.ID)
	if err != nil {
		return err
	}
	ctx.Desk.BeginResize(ev.ID)
	ctx.Desk.UpdateResize(c.By)
	changed, err := ctx.Desk.CommitResize(context.Background())
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	if !changed {
		ctx.Printf("Duration of \"%s\" unchanged (%s).\n", ev.Title, cli.FormatDuration(ev.Duration))
		return nil
	}
	resized, _ := ctx.Desk.Store().Event(ev.ID)
	ctx.Printf("✓ \"%s\" now lasts %s\n", resized.Title, cli.FormatDuration(resized.Duration))
	return nil
}
