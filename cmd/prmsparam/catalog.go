package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/TuSKan/go-prms"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [name...]",
	Short: "List catalog parameters or show their definitions",
	RunE:  runCatalog,
}

var modulesCmd = &cobra.Command{
	Use:   "modules <module>...",
	Short: "List the parameters required by the given modules",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runModules,
}

// loadCatalog returns the configured catalog, or the bundled one.
func loadCatalog(ctx context.Context) (*prms.Catalog, error) {
	if cfg.Catalog.URL == "" {
		return prms.DefaultCatalog()
	}
	store, err := prms.OpenStore(ctx, cfg.Catalog.URL)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadCatalog(ctx, cfg.Catalog.Key)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	c, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, name := range c.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}
	for _, name := range args {
		p, _, err := c.NewParameter(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, p)
	}
	return nil
}

func runModules(cmd *cobra.Command, args []string) error {
	c, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(c.ParamsForModules(args...), "\n"))
	return nil
}
