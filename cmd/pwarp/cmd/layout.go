package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pwarp/internal/projection"
)

// layoutCmd prints the display layout.
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Compute the display surface scale and camera size",
	Long: `Compute the surface scale, the orthographic size of the display camera and
the camera origin scale for the configured display (--width, --height,
--screen-height, --scale-factor).

Examples:
  pwarp layout
  pwarp layout --width 1280 --height 720 --screen-height 2 --format json`,
	Args: cobra.NoArgs,
	RunE: runLayoutCommand,
}

type layoutOutput struct {
	Resolution       string     `json:"resolution" yaml:"resolution"`
	SurfaceScale     [3]float64 `json:"surface_scale" yaml:"surface_scale,flow"`
	OrthographicSize float64    `json:"orthographic_size" yaml:"orthographic_size"`
	OriginScale      [3]float64 `json:"origin_scale" yaml:"origin_scale,flow"`
}

func runLayoutCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	display := cfg.ToDisplay()

	layout, err := display.Layout()
	if err != nil {
		return err
	}

	content, err := formatLayout(display, layout, cfg.Output.Format, cfg.Output.Precision)
	if err != nil {
		return err
	}
	return emit(cmd, cfg.Output.File, content)
}

func formatLayout(display projection.Display, layout projection.Layout, format string, precision int) (string, error) {
	out := layoutOutput{
		Resolution:       display.Resolution.String(),
		SurfaceScale:     layout.SurfaceScale,
		OrthographicSize: layout.OrthographicSize,
		OriginScale:      layout.OriginScale,
	}
	switch format {
	case "json", "yaml":
		return renderStructured(format, out)
	case "text", "":
		var b strings.Builder
		fmt.Fprintf(&b, "resolution: %s\n", out.Resolution)
		fmt.Fprintf(&b, "surface scale: %s\n", formatVec(out.SurfaceScale, precision))
		fmt.Fprintf(&b, "orthographic size: %.*f\n", precision, out.OrthographicSize)
		fmt.Fprintf(&b, "origin scale: %s\n", formatVec(out.OriginScale, precision))
		return b.String(), nil
	default:
		return "", fmt.Errorf("unsupported layout format: %s", format)
	}
}

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml")
	layoutCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	layoutCmd.Flags().Int("precision", 6, "decimal places in text output")
}
