package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "List knowledge base entries in match order",
		Args:  cobra.NoArgs,
		RunE:  runKB,
	}

	RootCmd.AddCommand(cmd)
}

func runKB(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	entries := knowledge.NewMemoryStore(knowledge.Seed()).List()

	if formatFlag == "json" {
		return writeJSON(cmd.OutOrStdout(), entries)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tKEYWORDS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Topic, strings.Join(e.Keywords, ", "))
	}
	return tw.Flush()
}
