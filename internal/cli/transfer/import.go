package transfer

import (
	"context"
	"fmt"
	"os"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/desk"
)

// ImportCmd loads a document file. Replace backs up the current document
// first.
type ImportCmd struct {
	File string `arg:"" help:"JSON document to import." type:"existingfile"`
	Mode string `short:"m" help:"merge (append events and types) or replace (swap the whole document)." enum:"merge,replace" default:"merge"`
	Yes  bool   `short:"y" help:"Do not ask before replacing."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	mode, err := desk.ParseImportMode(c.Mode)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	if mode == desk.ModeReplace && !c.Yes {
		ok, err := ctx.Confirm("This replaces all current data (a backup is taken first). Continue?")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Import cancelled.")
			return nil
		}
	}

	res, err := ctx.Desk.Import(context.Background(), data, mode)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cal := ctx.Desk.Store()
	ctx.Printf("✓ Imported %s (%s): now %d events, %d types\n", c.File, mode, len(cal.Events()), len(cal.Types()))
	for _, w := range res.Warnings {
		ctx.Printf("  ⚠ %s\n", w)
	}
	return nil
}
