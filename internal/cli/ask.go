package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Resolve a question against the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	matcher, err := newMatcher()
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	query := strings.Join(args, " ")
	res := matcher.Match(query)

	if formatFlag == "json" {
		return writeJSON(cmd.OutOrStdout(), newAnswer(query, res))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Response)
	return err
}
