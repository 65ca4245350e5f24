package main

import (
	"fmt"
	"io"

	"github.com/TuSKan/go-prms"
	"github.com/TuSKan/go-prms/datfile"
	"github.com/spf13/cobra"
)

var dimsCmd = &cobra.Command{
	Use:   "dims <prefix>",
	Short: "Merge the regional dimension fragments under a prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runDims,
}

var datCmd = &cobra.Command{
	Use:   "datfile <key>",
	Short: "Summarize a station data file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatfile,
}

var (
	dimsSuffix string
	batchSize  int
)

func init() {
	dimsCmd.Flags().StringVar(&dimsSuffix, "suffix", "dimensions.xml", "key suffix of dimension fragments")
	datCmd.Flags().IntVar(&batchSize, "batch", 365, "rows per batch")
}

func runDims(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := prms.OpenStore(ctx, cfg.Store.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.RegionKeys(ctx, args[0], dimsSuffix)
	if err != nil {
		return err
	}
	dims := prms.NewDimensions(prms.SkipInvalidNames())
	diags, err := store.MergeDimensions(ctx, dims, keys...)
	printDiagnostics(cmd.ErrOrStderr(), diags)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d fragments\n%s", len(keys), dims)
	return nil
}

func runDatfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ds, err := datfile.Open(ctx, cfg.Store.URL, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n%d rows\n", ds.Header, ds.Len())
	for _, v := range ds.Variables() {
		fmt.Fprintf(out, "  %s %d\n", v.Name, v.Count)
	}
	batches := 0
	for {
		_, err := ds.NextBatch(ctx, batchSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		batches++
	}
	fmt.Fprintf(out, "%d batches of up to %d rows\n", batches, batchSize)
	return nil
}
