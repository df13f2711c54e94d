// Package cli implements the aquabot command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/aquaguard/backend/internal/analysis/intent"
	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

var formatFlag string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "aquabot",
	Short:         "Query the AquaGuard water-quality assistant",
	Long:          "Ask the AquaGuard assistant questions, inspect its knowledge base and transcribe recorded questions.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func newMatcher() (*intent.Matcher, error) {
	return intent.NewMatcher(knowledge.Seed())
}

func checkFormat() error {
	if formatFlag != "json" && formatFlag != "text" {
		return fmt.Errorf("unsupported format %q: want json or text", formatFlag)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// answer is the JSON shape shared by ask and transcribe.
type answer struct {
	Query    string `json:"query"`
	Outcome  string `json:"outcome"`
	EntryID  string `json:"entryId,omitempty"`
	Response string `json:"response"`
}

func newAnswer(query string, res intent.Resolution) answer {
	return answer{
		Query:    query,
		Outcome:  string(res.Outcome),
		EntryID:  res.Entry.ID,
		Response: res.Response,
	}
}
