package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pwarp/internal/homography"
)

// frameRecord is the serialized form of a FrameResult.
type frameRecord struct {
	Index             int       `json:"index" yaml:"index"`
	ID                string    `json:"id,omitempty" yaml:"id,omitempty"`
	Coefficients      []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty,flow"`
	M0                []float64 `json:"m0,omitempty" yaml:"m0,omitempty,flow"`
	M1                []float64 `json:"m1,omitempty" yaml:"m1,omitempty,flow"`
	M2                []float64 `json:"m2,omitempty" yaml:"m2,omitempty,flow"`
	ReprojectionError *float64  `json:"reprojection_error,omitempty" yaml:"reprojection_error,omitempty"`
	Error             string    `json:"error,omitempty" yaml:"error,omitempty"`
}

type fileRecord struct {
	File       string        `json:"file" yaml:"file"`
	Resolution string        `json:"resolution" yaml:"resolution"`
	Frames     []frameRecord `json:"frames" yaml:"frames"`
}

type batchRecord struct {
	Files  []fileRecord `json:"files" yaml:"files"`
	Solved int          `json:"solved" yaml:"solved"`
	Failed int          `json:"failed" yaml:"failed"`
}

// round rounds v to precision decimal places; a negative precision keeps v.
func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func roundAll(vs []float64, precision int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = round(v, precision)
	}
	return out
}

func newFrameRecord(fr FrameResult, precision int) frameRecord {
	rec := frameRecord{Index: fr.Index, ID: fr.ID}
	if !fr.OK() {
		rec.Error = fr.Error.Error()
		return rec
	}
	h := fr.Coefficients
	m0, m1, m2 := h.M0(), h.M1(), h.M2()
	reproj := fr.ReprojectionError
	rec.Coefficients = roundAll(h[:], precision)
	rec.M0 = roundAll(m0[:], precision)
	rec.M1 = roundAll(m1[:], precision)
	rec.M2 = roundAll(m2[:], precision)
	rec.ReprojectionError = &reproj
	return rec
}

func newBatchRecord(r *Result, precision int) batchRecord {
	st := r.Stats()
	out := batchRecord{Files: make([]fileRecord, len(r.Files)), Solved: st.Solved, Failed: st.Failed}
	for i, f := range r.Files {
		frames := make([]frameRecord, len(f.Frames))
		for j, fr := range f.Frames {
			frames[j] = newFrameRecord(fr, precision)
		}
		out.Files[i] = fileRecord{File: f.Path, Resolution: f.Resolution.String(), Frames: frames}
	}
	return out
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string, precision int) (string, error) {
	switch format {
	case "json":
		return formatJSON(r, precision)
	case "csv":
		return formatCSV(r, precision)
	case "yaml":
		return formatYAML(r, precision)
	default: // text
		return formatText(r, precision), nil
	}
}

// formatJSON formats results as JSON.
func formatJSON(r *Result, precision int) (string, error) {
	bts, err := json.MarshalIndent(newBatchRecord(r, precision), "", "  ")
	return string(bts), err
}

// formatYAML formats results as YAML.
func formatYAML(r *Result, precision int) (string, error) {
	bts, err := yaml.Marshal(newBatchRecord(r, precision))
	return string(bts), err
}

// formatCSV writes one row per frame with h0..h7 as columns.
func formatCSV(r *Result, precision int) (string, error) {
	header := []string{"file", "frame", "id"}
	for i := range homography.Size {
		header = append(header, fmt.Sprintf("h%d", i))
	}
	header = append(header, "reprojection_error", "error")

	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(header); err != nil {
		return "", err
	}

	for _, f := range r.Files {
		for _, fr := range f.Frames {
			row := []string{f.Path, strconv.Itoa(fr.Index), fr.ID}
			if fr.OK() {
				for _, v := range fr.Coefficients {
					row = append(row, strconv.FormatFloat(v, 'f', precision, 64))
				}
				row = append(row, strconv.FormatFloat(fr.ReprojectionError, 'g', 3, 64), "")
			} else {
				for range homography.Size {
					row = append(row, "")
				}
				row = append(row, "", fr.Error.Error())
			}
			if err := writer.Write(row); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as a human readable report.
func formatText(r *Result, precision int) string {
	p := message.NewPrinter(language.English)

	var output strings.Builder
	for i, f := range r.Files {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s (%s)\n", f.Path, f.Resolution))
		for _, fr := range f.Frames {
			output.WriteString(formatFrameLine(fr, precision))
		}
	}

	st := r.Stats()
	output.WriteString(summaryLine(p, st))
	return output.String()
}

func formatFrameLine(fr FrameResult, precision int) string {
	label := fmt.Sprintf("frame %d", fr.Index)
	if fr.ID != "" {
		label += " [" + fr.ID + "]"
	}
	if !fr.OK() {
		return fmt.Sprintf("%s: skipped: %v\n", label, fr.Error)
	}
	coeffs := make([]string, len(fr.Coefficients))
	for i, v := range fr.Coefficients {
		coeffs[i] = strconv.FormatFloat(v, 'f', precision, 64)
	}
	return fmt.Sprintf("%s: h = [%s] reprojection %.3g\n", label, strings.Join(coeffs, " "), fr.ReprojectionError)
}

func summaryLine(p *message.Printer, st Stats) string {
	return p.Sprintf("Solved %d of %d frames in %d files (%d failed)\n", st.Solved, st.Frames, st.Files, st.Failed)
}
