package config

import (
	"fmt"
	"os"
	"path/filepath"

	"thermostab/internal/models"

	"gopkg.in/yaml.v3"
)

type pointsDoc struct {
	Points []models.TemperaturePoint `yaml:"points"`
}

// LoadPoints reads a point list. A missing file yields an empty list.
func LoadPoints(filename string) ([]models.TemperaturePoint, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read points file: %w", err)
	}
	var doc pointsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse points file: %w", err)
	}
	for i := range doc.Points {
		doc.Points[i].Index = i
	}
	return doc.Points, nil
}

// SavePoints writes the point list, creating the directory if needed.
func SavePoints(filename string, points []models.TemperaturePoint) error {
	data, err := yaml.Marshal(pointsDoc{Points: points})
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create points directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write points file: %w", err)
	}
	return nil
}
