package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ciq-assistant/internal/document"
)

var indexCmd = &cobra.Command{
	Use:   "index [collection...]",
	Short: "Rebuild collection indexes",
	Long: `Rebuilds the vector index of each named collection from its source folder,
or of every collection when none are named. Valid collections are
ciq, standard_ciq, template, master_template and log.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	collections := make([]document.Collection, 0, len(args))
	for _, arg := range args {
		c, err := document.ParseCollection(arg)
		if err != nil {
			return err
		}
		collections = append(collections, c)
	}

	stats, buildErr := s.Builder.BuildAll(cmd.Context(), collections...)
	for _, st := range stats {
		cmd.Printf("%-16s %4d documents  %s\n", st.Collection, st.Documents, st.Duration.Round(time.Millisecond))
		for _, path := range st.SkippedPaths() {
			cmd.Printf("  skipped %s\n", path)
		}
	}
	if buildErr != nil {
		return fmt.Errorf("indexing failed: %w", buildErr)
	}
	return nil
}
