package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Frame is one tracked surface position: the pixel corners in top-left,
// top-right, bottom-left, bottom-right order.
type Frame struct {
	ID      string        `json:"id,omitempty" yaml:"id,omitempty"`
	Corners []utils.Point `json:"corners" yaml:"corners"`
}

// FrameSet is the content of a frames file.
type FrameSet struct {
	Resolution projection.Resolution `json:"resolution" yaml:"resolution"`
	Frames     []Frame               `json:"frames" yaml:"frames"`
}

// ErrNoFrames is returned for a frames file without frames.
var ErrNoFrames = errors.New("no frames")

// frameFormat picks the decoder for a frames file from its extension.
func frameFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported frames file extension: %s", path)
	}
}

// ParseFrames decodes a frames document in the given format (yaml or json).
func ParseFrames(data []byte, format string) (*FrameSet, error) {
	var set FrameSet
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported frames format: %s", format)
	}

	if err := set.Resolution.Validate(); err != nil {
		return nil, err
	}
	if len(set.Frames) == 0 {
		return nil, ErrNoFrames
	}
	return &set, nil
}

// LoadFrames reads a frames file, choosing YAML or JSON by extension.
func LoadFrames(path string) (*FrameSet, error) {
	format, err := frameFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from CLI arguments
	if err != nil {
		return nil, fmt.Errorf("read frames file: %w", err)
	}
	set, err := ParseFrames(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
