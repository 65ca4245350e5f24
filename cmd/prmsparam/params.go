package main

import (
	"context"
	"fmt"
	"io"

	"github.com/TuSKan/go-prms"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check <snapshot>",
	Short: "Check parameter sizes, value ranges and catalog definitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var subsetCmd = &cobra.Command{
	Use:   "subset <snapshot> <output>",
	Short: "Remove HRUs by nhm_id and write the result",
	Args:  cobra.ExactArgs(2),
	RunE:  runSubset,
}

var paramdbCmd = &cobra.Command{
	Use:   "paramdb <snapshot> <parameter>...",
	Short: "Write parameters in paramDb form",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runParamDB,
}

var (
	removeHRUs []int64
	removeSegs []int64
	paramdbDir string
)

func init() {
	subsetCmd.Flags().Int64SliceVar(&removeHRUs, "hru", nil, "nhm_id of an HRU to remove (repeatable)")
	subsetCmd.Flags().Int64SliceVar(&removeSegs, "seg", nil, "nhm_seg of a segment to remove (not supported)")
	paramdbCmd.Flags().StringVar(&paramdbDir, "out", "", "key prefix for paramDb files; print to stdout when empty")
}

// openSnapshot reads a snapshot from the configured store.
func openSnapshot(ctx context.Context, key string) (*prms.Store, *prms.Parameters, error) {
	c, err := loadCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := prms.OpenStore(ctx, cfg.Store.URL)
	if err != nil {
		return nil, nil, err
	}
	ps, diags, err := store.ReadSnapshot(ctx, key, prms.WithCatalog(c))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	logDiagnostics(diags)
	return store, ps, nil
}

func logDiagnostics(diags prms.Diagnostics) {
	for _, d := range diags {
		log.Debug(d.Message, zap.String("subject", d.Subject), zap.String("code", d.Code))
	}
}

func printDiagnostics(w io.Writer, diags prms.Diagnostics) {
	for _, d := range diags {
		fmt.Fprintln(w, d)
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	store, ps, err := openSnapshot(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	report, _ := ps.Check()
	fmt.Fprint(out, report)
	printDiagnostics(out, ps.Validate())
	return nil
}

func runSubset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, ps, err := openSnapshot(ctx, args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	diags, err := ps.RemoveByGlobalID(removeHRUs, removeSegs)
	printDiagnostics(cmd.ErrOrStderr(), diags)
	if err != nil {
		return err
	}
	if err := store.WriteSnapshot(ctx, args[1], ps); err != nil {
		return err
	}
	log.Info("wrote snapshot", zap.String("key", args[1]), zap.Int("parameters", ps.Len()))
	return nil
}

func runParamDB(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, ps, err := openSnapshot(ctx, args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range args[1:] {
		p, err := ps.Get(name)
		if err != nil {
			return err
		}
		if paramdbDir == "" {
			text, err := p.ToParamDB()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			continue
		}
		key := paramdbDir + "/" + name + ".csv"
		if err := store.WriteParamDB(ctx, key, p); err != nil {
			return err
		}
		log.Info("wrote paramDb", zap.String("key", key))
	}
	return nil
}
