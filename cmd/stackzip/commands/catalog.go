package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackzip/pkg/catalog"
	"github.com/Sumatoshi-tech/stackzip/pkg/config"
)

// ErrNoCatalog is returned when the catalog database does not exist yet.
var ErrNoCatalog = errors.New("catalog not found")

// CatalogCommand holds the flags shared by the catalog subcommands.
type CatalogCommand struct {
	path    string
	format  string
	limit   int
	project string
	noColor bool
}

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand() *cobra.Command {
	cc := &CatalogCommand{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List recorded sweeps and artifacts",
	}

	cmd.PersistentFlags().StringVar(&cc.path, "catalog", config.DefaultCatalogPath, "Catalog database path")
	cmd.PersistentFlags().StringVar(&cc.format, "format", FormatTable, "Output format: table, json, yaml")
	cmd.PersistentFlags().IntVar(&cc.limit, "limit", 0, "Maximum rows (0 = default 50)")
	cmd.PersistentFlags().BoolVar(&cc.noColor, "no-color", false, "Disable colored output")

	artifacts := &cobra.Command{
		Use:   "artifacts",
		Short: "List archives, newest first",
		Args:  cobra.NoArgs,
		RunE:  cc.runArtifacts,
	}
	artifacts.Flags().StringVar(&cc.project, "project", "", "Only list artifacts of this project")

	sweeps := &cobra.Command{
		Use:   "sweeps",
		Short: "List sweeps, newest first",
		Args:  cobra.NoArgs,
		RunE:  cc.runSweeps,
	}

	cmd.AddCommand(artifacts, sweeps)

	return cmd
}

func (cc *CatalogCommand) open() (*catalog.Catalog, error) {
	_, err := os.Stat(cc.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCatalog, cc.path)
	}

	return catalog.Open(cc.path)
}

func (cc *CatalogCommand) runArtifacts(cmd *cobra.Command, _ []string) error {
	cat, err := cc.open()
	if err != nil {
		return err
	}
	defer cat.Close()

	artifacts, err := cat.Artifacts(cmd.Context(), catalog.ArtifactFilter{Project: cc.project, Limit: cc.limit})
	if err != nil {
		return err
	}

	return renderArtifacts(cmd.OutOrStdout(), cc.format, artifacts, cc.noColor)
}

func (cc *CatalogCommand) runSweeps(cmd *cobra.Command, _ []string) error {
	cat, err := cc.open()
	if err != nil {
		return err
	}
	defer cat.Close()

	sweeps, err := cat.Sweeps(cmd.Context(), cc.limit)
	if err != nil {
		return err
	}

	return renderSweeps(cmd.OutOrStdout(), cc.format, sweeps, cc.noColor)
}
