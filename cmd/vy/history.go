package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/vibeyard/internal/studio"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "history <version-id>",
		Short: "Replay the conversation that led to a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			turns, err := studio.Transcript(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(turns)
			}
			for _, t := range turns {
				req := t.Request
				if t.Manual {
					req = "[manual code edit]"
				}
				fmt.Fprintf(out, "V%d  %s  %s\n", t.Number, t.CreatedAt.Format("2006-01-02 15:04"), t.VersionID)
				fmt.Fprintf(out, "    > %s\n", req)
				if t.Think != "" {
					fmt.Fprintf(out, "    thought: %s\n", oneLine(t.Think, 120))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print turns as JSON")
	return cmd
}

// oneLine collapses whitespace and truncates s to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
