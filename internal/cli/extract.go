package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	openaiext "labflow/internal/adapters/openai"
	"labflow/internal/infrastructure/config"
)

var extractCmd = &cobra.Command{
	Use:   "extract <protocol-file>",
	Short: "Extract structured steps from a protocol file",
	Long: `Send a free-text protocol to the extraction service and print the
structured result as JSON.

Example:
  labflow extract pcr-protocol.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Extraction.Validate(); err != nil {
		return err
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read protocol file: %w", err)
	}

	extractor := openaiext.NewExtractor(openaiext.Config{
		APIKey:  cfg.Extraction.APIKey,
		BaseURL: cfg.Extraction.BaseURL,
		Model:   cfg.Extraction.Model,
	})
	protocol, err := extractor.Extract(cmd.Context(), string(text))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(protocol, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
