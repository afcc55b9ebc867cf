package eventtypes

import (
	"context"
	"fmt"

	"github.com/julianstephens/mydesk/internal/cli"
)

type TypeAddCmd struct {
	Name  string `arg:"" optional:"" help:"Type name. Blank names become \"Type N\"."`
	Color string `short:"c" help:"Colour (#RRGGBB)."`
}

func (c *TypeAddCmd) Run(ctx *cli.Context) error {
	et, err := ctx.Desk.CreateType(context.Background(), c.Name, c.Color)
	if err != nil {
		return fmt.Errorf("failed to save type: %w", err)
	}
	ctx.Printf("✓ Added type %s %s (%s)\n", cli.Swatch(et.Color), et.Name, et.ID)
	return nil
}

type TypeRenameCmd struct {
	Type string `arg:"" help:"Type id or name."`
	Name string `arg:"" help:"New name."`
}

func (c *TypeRenameCmd) Run(ctx *cli.Context) error {
	et, err := ctx.ResolveType(c.Type)
	if err != nil {
		return err
	}
	if _, err := ctx.Desk.RenameType(context.Background(), et.ID, c.Name); err != nil {
		return fmt.Errorf("failed to save type: %w", err)
	}
	renamed, _ := ctx.Desk.Store().Type(et.ID)
	ctx.Printf("✓ Renamed \"%s\" to \"%s\"\n", et.Name, renamed.Name)
	return nil
}

// TypeRecolorCmd changes a type colour. Events of the type still showing the
// old colour follow it.
type TypeRecolorCmd struct {
	Type  string `arg:"" help:"Type id or name."`
	Color string `arg:"" help:"New colour (#RRGGBB)."`
}

func (c *TypeRecolorCmd) Run(ctx *cli.Context) error {
	et, err := ctx.ResolveType(c.Type)
	if err != nil {
		return err
	}
	ok, err := ctx.Desk.RecolorType(context.Background(), et.ID, c.Color)
	if err != nil {
		return fmt.Errorf("failed to save type: %w", err)
	}
	if !ok {
		return fmt.Errorf("invalid colour %q (want #RRGGBB)", c.Color)
	}
	recolored, _ := ctx.Desk.Store().Type(et.ID)
	ctx.Printf("✓ \"%s\" is now %s %s\n", et.Name, cli.Swatch(recolored.Color), recolored.Color)
	return nil
}

type TypeDeleteCmd struct {
	Type string `arg:"" help:"Type id or name."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *TypeDeleteCmd) Run(ctx *cli.Context) error {
	et, err := ctx.ResolveType(c.Type)
	if err != nil {
		return err
	}

	used := 0
	for _, ev := range ctx.Desk.Store().Events() {
		if ev.TypeID == et.ID {
			used++
		}
	}
	if !c.Yes && used > 0 {
		ok, err := ctx.Confirm(fmt.Sprintf("\"%s\" is used by %d events, which keep their colour. Delete it?", et.Name, used))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	if _, err := ctx.Desk.DeleteType(context.Background(), et.ID); err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	ctx.Printf("✓ Deleted type \"%s\"\n", et.Name)
	return nil
}

type TypeListCmd struct{}

func (c *TypeListCmd) Run(ctx *cli.Context) error {
	types := ctx.Desk.Store().Types()
	if len(types) == 0 {
		ctx.Println("No event types defined.")
		return nil
	}
	counts := make(map[string]int)
	for _, ev := range ctx.Desk.Store().Events() {
		counts[ev.TypeID]++
	}
	for _, et := range types {
		ctx.Printf("%s %-20s %s  %d events  (%s)\n", cli.Swatch(et.Color), et.Name, et.Color, counts[et.ID], et.ID)
	}
	return nil
}
