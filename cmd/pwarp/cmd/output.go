package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// renderStructured encodes v as json or yaml.
func renderStructured(format string, v any) (string, error) {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case "yaml":
		b, err := yaml.Marshal(v)
		return string(b), err
	default:
		return "", fmt.Errorf("unsupported structured format: %s", format)
	}
}

// emit writes content to outputFile, or to the command's stdout when empty.
func emit(cmd *cobra.Command, outputFile, content string) error {
	if outputFile == "" {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// formatVec formats a uniform row as "(a, b, c)".
func formatVec(v [3]float64, precision int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'f', precision, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
