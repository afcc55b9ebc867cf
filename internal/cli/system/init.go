package system

import (
	"fmt"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/config"
)

// InitCmd writes the config file and creates the local cache.
type InitCmd struct{}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := ctx.Cache.Init(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	ctx.Printf("✓ Config:      %s\n", config.ExpandPath(ctx.ConfigPath))
	ctx.Printf("✓ Local cache: %s\n", ctx.Cache.GetConfigPath())
	ctx.Println("Link a folder for the external copy with 'mydesk storage link PATH'.")
	return nil
}
