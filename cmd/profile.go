package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
	"github.com/KaramelBytes/datacopilot/internal/utils"
)

var (
	profOutputPath string
	profMaxRows    int
	profTopValues  int
	profOutliers   bool
	profOutlierThr float64
)

var profileCmd = &cobra.Command{
	Use:   "profile <file.csv>",
	Short: "Summarize a CSV: column types, missing values and basic statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read dataset: %w", err)
		}
		ds, err := dataset.Parse(filepath.Base(path), data)
		if err != nil {
			return err
		}
		opt := dataset.DefaultProfileOptions()
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = profMaxRows
		}
		if profTopValues > 0 {
			opt.TopValues = profTopValues
		}
		opt.Outliers = profOutliers
		if profOutlierThr > 0 {
			opt.OutlierThreshold = profOutlierThr
		}
		md := dataset.BuildProfile(ds, opt).Markdown()

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().IntVar(&profMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	profileCmd.Flags().IntVar(&profTopValues, "top", 5, "top categories listed per categorical column")
	profileCmd.Flags().BoolVar(&profOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&profOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
