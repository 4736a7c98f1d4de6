// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/synthesis-engine/internal/pipeline"
)

var showCmd = &cobra.Command{
	Use:   "show <result.yaml>",
	Short: "Print a result file saved with query --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := pipeline.ReadResultFile(args[0])
		if err != nil {
			return err
		}
		writeReport(os.Stdout, &rf.Result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
