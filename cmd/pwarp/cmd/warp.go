package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pwarp/internal/warp"
)

// warpCmd renders the CPU reference of the warp shader.
var warpCmd = &cobra.Command{
	Use:   "warp INPUT OUTPUT",
	Short: "Warp an image with the homography for four corners",
	Long: `Render the camera texture INPUT through the homography solved for the given
destination corners and write the result to OUTPUT. Every output pixel at UV
(u, v), with v growing upwards, samples INPUT at H*(u, v, 1) with bilinear
filtering. Samples outside the texture are transparent.

Supported formats: ` + fmt.Sprint(warp.SupportedExtensions) + `

Examples:
  pwarp warp camera.png surface.png --dst "0.1,0.9;0.9,0.9;0,0;1,0"
  pwarp warp camera.jpg surface.png --pixels --out-width 1280 --out-height 720 \
    --dst "128,640;1152,640;0,0;1280,0"`,
	Args: cobra.ExactArgs(2),
	RunE: runWarpCommand,
}

func runWarpCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	input, output := args[0], args[1]

	if !warp.IsSupportedImage(input) {
		return fmt.Errorf("unsupported input format: %s", input)
	}

	dstStr, _ := cmd.Flags().GetString("dst")
	dst, err := parseCorners("dst", dstStr)
	if err != nil {
		return err
	}

	opts := warp.FileOptions{Solver: cfg.ToSolver()}
	copy(opts.Corners[:], dst)
	opts.Pixels, _ = cmd.Flags().GetBool("pixels")
	opts.Width, _ = cmd.Flags().GetInt("out-width")
	opts.Height, _ = cmd.Flags().GetInt("out-height")

	h, err := warp.RenderFile(input, output, opts)
	if err != nil {
		return fmt.Errorf("warp failed: %w", err)
	}

	slog.Info("Wrote warped image", "input", input, "output", output, "coefficients", h[:])
	return nil
}

func init() {
	rootCmd.AddCommand(warpCmd)

	warpCmd.Flags().String("dst", "", "destination corners \"x,y;x,y;x,y;x,y\" (required)")
	warpCmd.Flags().Bool("pixels", false, "destination corners are pixels of the output image")
	warpCmd.Flags().Int("out-width", 0, "output width (default: input width)")
	warpCmd.Flags().Int("out-height", 0, "output height (default: input height)")
	_ = warpCmd.MarkFlagRequired("dst")
}
