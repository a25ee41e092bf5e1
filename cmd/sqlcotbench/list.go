package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sqlcotbench/internal/adapter"
	"sqlcotbench/internal/dataset"
	"sqlcotbench/internal/prompt"
)

func newStrategiesCmd() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List the prompting strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			strategies, err := prompt.Resolve(nil, cfg.CustomStrategies)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROMPT")
			for _, s := range strategies {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, firstLine(s.Prompt))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&common.configPath, "config", "c", "", "YAML run configuration")
	return cmd
}

func newDatasetsCmd() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets found in the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			datasets, err := loadDatasets(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DB_ID\tQUESTIONS\tDATABASE")
			for _, ds := range datasets {
				fmt.Fprintf(w, "%s\t%d\t%s\n", ds.DbID, len(ds.Questions), describeDatabase(cmd.Context(), cfg.DataDir, ds))
			}
			return w.Flush()
		},
	}
	common.register(cmd)
	return cmd
}

func describeDatabase(ctx context.Context, dataDir string, ds dataset.TestDataset) string {
	if _, err := os.Stat(dataset.DatabasePath(dataDir, ds.DbID)); err != nil {
		return "missing"
	}
	db, err := adapter.Open(ds.DatabaseURL)
	if err != nil {
		return "error: " + err.Error()
	}
	if err := db.Connect(ctx); err != nil {
		return "error: " + err.Error()
	}
	defer db.Close()
	version, err := db.GetDatabaseVersion(ctx)
	if err != nil {
		return "error: " + err.Error()
	}
	return db.GetDatabaseType() + " " + version
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
