package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	standardizeOut string
	standardizeYes bool
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize [file]",
	Short: "Standardize a CIQ workbook",
	Long: `Maps the columns of an uploaded CIQ workbook onto the standard CIQ template
and writes the standardized workbook. Columns with no match are reported and
can be added to the template with --yes or a later "ciqctl confirm".`,
	Args: cobra.ExactArgs(1),
	RunE: runStandardize,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [request-id] [decision]",
	Short: "Resolve a pending template update",
	Long: `Adds the unmatched columns of a standardization to the standard CIQ
template when decision is "yes". Any other decision discards the update.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfirm,
}

func init() {
	standardizeCmd.Flags().StringVarP(&standardizeOut, "out", "o", "standardized_ciq.xlsx", "output workbook path")
	standardizeCmd.Flags().BoolVarP(&standardizeYes, "yes", "y", false, "add unmatched columns to the standard template")
	rootCmd.AddCommand(standardizeCmd)
	rootCmd.AddCommand(confirmCmd)
}

func runStandardize(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	res, err := s.Schema.Standardize(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("standardization failed: %w", err)
	}

	if err := os.WriteFile(standardizeOut, res.Workbook, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", standardizeOut, err)
	}
	cmd.Printf("Wrote %s (%d rows) against %s\n", standardizeOut, len(res.Table.Rows), res.CanonicalPath)

	if len(res.Unmatched) == 0 {
		cmd.Println("All uploaded columns matched the standard CIQ template.")
		return nil
	}
	cmd.Printf("Unmatched columns: %s\n", strings.Join(res.Unmatched, ", "))

	if !standardizeYes {
		cmd.Printf("Run \"ciqctl confirm %s yes\" to add them to the standard template.\n", res.RequestID)
		return nil
	}
	return confirm(cmd, res.RequestID, "yes")
}

func runConfirm(cmd *cobra.Command, args []string) error {
	return confirm(cmd, args[0], args[1])
}

func confirm(cmd *cobra.Command, requestID, decision string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	res, err := s.Schema.Confirm(cmd.Context(), requestID, decision)
	if err != nil {
		return fmt.Errorf("confirm failed: %w", err)
	}

	cmd.Println(res.Message)
	if len(res.AddedColumns) > 0 {
		cmd.Printf("Added columns: %s\n", strings.Join(res.AddedColumns, ", "))
	}
	if res.BackupPath != "" {
		cmd.Printf("Backup: %s\n", res.BackupPath)
	}
	return nil
}
