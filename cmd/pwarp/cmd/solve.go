package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pwarp/internal/config"
	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// solveCmd solves a single homography from corner lists.
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the homography for four corner correspondences",
	Long: `Solve the planar homography that maps four source points onto four
destination points and print the shader uniform rows.

Points are written as "x,y;x,y;x,y;x,y" in top-left, top-right, bottom-left,
bottom-right order. The source defaults to the unit square with the vertical
origin at the bottom. With --pixels the destination is given in screen pixels
and normalized by --width and --height.

Examples:
  pwarp solve --dst "0.1,0.9;0.9,0.9;0,0;1,0"
  pwarp solve --dst "0,0;100,0;100,100;0,100" --src "0,0;1,0;1,1;0,1"
  pwarp solve --pixels --dst "128,640;1152,640;0,0;1280,0" --format json`,
	Args: cobra.NoArgs,
	RunE: runSolveCommand,
}

// solveOutput is the structured form of a solve.
type solveOutput struct {
	Coefficients      []float64 `json:"coefficients" yaml:"coefficients,flow"`
	M0                []float64 `json:"m0" yaml:"m0,flow"`
	M1                []float64 `json:"m1" yaml:"m1,flow"`
	M2                []float64 `json:"m2" yaml:"m2,flow"`
	ReprojectionError float64   `json:"reprojection_error" yaml:"reprojection_error"`
	Condition         float64   `json:"condition" yaml:"condition"`
	Affine            bool      `json:"affine" yaml:"affine"`
	Folded            bool      `json:"folded" yaml:"folded"`
}

func newSolveOutput(h homography.Coefficients, corr []homography.Correspondence) solveOutput {
	m0, m1, m2 := h.M0(), h.M1(), h.M2()
	return solveOutput{
		Coefficients:      h[:],
		M0:                m0[:],
		M1:                m1[:],
		M2:                m2[:],
		ReprojectionError: homography.Reprojection(corr, h),
		Condition:         homography.Condition(corr),
		Affine:            h.IsAffine(1e-12),
		Folded:            homography.Folded(corr),
	}
}

// parseCorners parses exactly four points.
func parseCorners(flag, s string) ([]utils.Point, error) {
	pts, err := utils.ParsePoints(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	if len(pts) != homography.Corners {
		return nil, fmt.Errorf("invalid --%s: expected %d points, got %d", flag, homography.Corners, len(pts))
	}
	return pts, nil
}

// correspondencesFromFlags builds the correspondence set from --src, --dst and --pixels.
func correspondencesFromFlags(cmd *cobra.Command, cfg *config.Config) ([]homography.Correspondence, error) {
	dstStr, _ := cmd.Flags().GetString("dst")
	if strings.TrimSpace(dstStr) == "" {
		return nil, errors.New("--dst is required")
	}
	dst, err := parseCorners("dst", dstStr)
	if err != nil {
		return nil, err
	}

	src := projection.SourceCorners()
	srcPts := src[:]
	if s, _ := cmd.Flags().GetString("src"); s != "" {
		if srcPts, err = parseCorners("src", s); err != nil {
			return nil, err
		}
	}

	if pixels, _ := cmd.Flags().GetBool("pixels"); pixels {
		res := cfg.ToDisplay().Resolution
		if err := res.Validate(); err != nil {
			return nil, err
		}
		for i, p := range dst {
			dst[i] = res.Normalize(p)
		}
	}

	return homography.Pair(srcPts, dst)
}

func runSolveCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	corr, err := correspondencesFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	h, err := homography.ComputeWith(cfg.ToSolver(), corr)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	out := newSolveOutput(h, corr)
	if cfg.Solver.ConditionWarn > 0 && out.Condition > cfg.Solver.ConditionWarn {
		slog.Warn("Ill-conditioned correspondence set", "condition", out.Condition)
	}
	slog.Debug("Solved homography", "coefficients", out.Coefficients, "reprojection_error", out.ReprojectionError)

	content, err := formatSolve(out, h, cfg.Output.Format, cfg.Output.Precision)
	if err != nil {
		return err
	}
	return emit(cmd, cfg.Output.File, content)
}

func formatSolve(out solveOutput, h homography.Coefficients, format string, precision int) (string, error) {
	switch format {
	case "json", "yaml":
		return renderStructured(format, out)
	case "csv":
		var b strings.Builder
		w := csv.NewWriter(&b)
		header := make([]string, 0, homography.Size+1)
		row := make([]string, 0, homography.Size+1)
		for i, v := range h {
			header = append(header, fmt.Sprintf("h%d", i))
			row = append(row, strconv.FormatFloat(v, 'f', precision, 64))
		}
		header = append(header, "reprojection_error")
		row = append(row, strconv.FormatFloat(out.ReprojectionError, 'g', 3, 64))
		_ = w.Write(header)
		_ = w.Write(row)
		w.Flush()
		return b.String(), w.Error()
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "%s = %s\n", projection.UniformM0, formatVec(h.M0(), precision))
		fmt.Fprintf(&b, "%s = %s\n", projection.UniformM1, formatVec(h.M1(), precision))
		fmt.Fprintf(&b, "%s = %s\n", projection.UniformM2, formatVec(h.M2(), precision))
		fmt.Fprintf(&b, "reprojection error: %.3g\n", out.ReprojectionError)
		fmt.Fprintf(&b, "affine: %t\n", out.Affine)
		fmt.Fprintf(&b, "folded: %t\n", out.Folded)
		return b.String(), nil
	}
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().String("dst", "", "destination corners \"x,y;x,y;x,y;x,y\" (required)")
	solveCmd.Flags().String("src", "", "source corners (default: unit square, origin bottom-left)")
	solveCmd.Flags().Bool("pixels", false, "destination corners are screen pixels")
	solveCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml")
	solveCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	solveCmd.Flags().Int("precision", 6, "decimal places in text and csv output")
	solveCmd.Flags().Float64("condition-warn", 1e10, "warn when the system condition number exceeds this (0 disables)")
}
