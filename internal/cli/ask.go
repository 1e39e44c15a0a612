package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/service"
)

var (
	askSession string
	askJSON    bool
)

type askOutput struct {
	Response string `json:"response"`
	Category string `json:"category"`
	Source   string `json:"source,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a question",
	Long: `Routes the question to a collection, retrieves the closest document and
answers with the configured model. Turns are remembered per session.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", contextutil.DefaultSessionID, "conversation session id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	resp, err := s.Query.Ask(cmd.Context(), service.QueryRequest{
		SessionID: askSession,
		Query:     args[0],
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(askOutput{
			Response: resp.Answer,
			Category: resp.Category.String(),
			Source:   resp.Source,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Answer)
	cmd.Println()
	if resp.Source != "" {
		cmd.Printf("[%s] %s\n", resp.Category, resp.Source)
	} else {
		cmd.Printf("[%s]\n", resp.Category)
	}
	return nil
}
