package main

import (
	"fmt"
	"os"

	"github.com/TuSKan/go-prms"
	"github.com/TuSKan/go-prms/internal/config"
	"github.com/TuSKan/go-prms/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

var (
	configPath string
	cfg        *config.Config
	log        = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "prmsparam",
	Short: "Inspect and edit PRMS parameter sets",
	Long: `prmsparam works with PRMS parameter sets stored as snapshots in a bucket.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (PRMS_* prefix)
3. ./prmsparam.toml or the file given with --config
4. Default values

Examples:
  prmsparam catalog                          # List catalog parameters
  prmsparam modules snowcomp climate_hru     # Parameters needed by modules
  prmsparam check region_01.json.zst         # Size and range checks
  prmsparam subset in.json.zst out.json.zst --hru 57864 --hru 57865
  prmsparam paramdb in.json.zst hru_area     # Write paramDb text`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.NewViper(configPath)
		if err != nil {
			return err
		}
		for key, flag := range map[string]string{
			"log.json":  "json-log",
			"log.level": "log-level",
			"store.url": "store",
			"verbose":   "verbose",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return errors.Wrapf(err, "flag %s", flag)
			}
		}
		if cfg, err = config.FromViper(v); err != nil {
			return err
		}
		level := cfg.Log.Level
		if cfg.Verbose {
			level = "debug"
		}
		if log, err = logging.New(cfg.Log.JSON, level); err != nil {
			return err
		}
		prms.SetLogger(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./prmsparam.toml)")
	rootCmd.PersistentFlags().Bool("json-log", false, "log as JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "bucket URL holding parameter snapshots (default working directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(subsetCmd)
	rootCmd.AddCommand(paramdbCmd)
	rootCmd.AddCommand(dimsCmd)
	rootCmd.AddCommand(datCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
