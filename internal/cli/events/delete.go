package events

import (
	"context"
	"fmt"

	"github.com/julianstephens/mydesk/internal/cli"
)

type EventDeleteCmd struct {
	ID  string `arg:"" help:"Event id or id prefix."`
	Yes bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *EventDeleteCmd) Run(ctx *cli.Context) error {
	ev, err := ctx.ResolveEvent(c.ID)
	if err != nil {
		return err
	}

	if !c.Yes {
		prompt := fmt.Sprintf("Delete \"%s\"?", ev.Title)
		if ev.IsRecurring() {
			prompt = fmt.Sprintf("Delete \"%s\" and all of its %s occurrences?", ev.Title, ev.Recurrence)
		}
		ok, err := ctx.Confirm(prompt)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	if _, err := ctx.Desk.DeleteEvent(context.Background(), ev.ID); err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	ctx.Printf("✓ Deleted \"%s\"\n", ev.Title)
	return nil
}
