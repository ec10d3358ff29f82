package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmarszal/mesa-tumor-model/internal/protocol"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				_ = json.NewEncoder(out).Encode(map[string]string{
					"version":  version,
					"protocol": protocol.Version,
				})
				return
			}
			fmt.Fprintf(out, "tumorsim version %s (observer protocol %s)\n", version, protocol.Version)
		},
	}
}
