package measurement

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// calibrationMeta is stored next to a raw calibration file.
type calibrationMeta struct {
	SpadMap uint8 `yaml:"spad_map"`
}

// MetaPath returns the path of the sidecar holding the spad map tag of the
// calibration file at path.
func MetaPath(path string) string {
	return path + ".yaml"
}

// SaveCalibration writes the raw calibration bytes to path and the spad map
// tag to MetaPath(path).
func SaveCalibration(path string, c *Calibration) error {
	if err := os.WriteFile(path, c.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	meta, err := yaml.Marshal(calibrationMeta{SpadMap: c.SpadMap})
	if err != nil {
		return err
	}
	if err := os.WriteFile(MetaPath(path), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write calibration tag: %w", err)
	}
	return nil
}

// LoadCalibration reads a calibration file. Without a sidecar the data is
// untagged.
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}

	var meta calibrationMeta
	raw, err := os.ReadFile(MetaPath(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read calibration tag: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%s: %w", MetaPath(path), err)
		}
	}

	c, err := NewCalibration(data, meta.SpadMap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
