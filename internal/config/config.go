// Package config loads stitching job files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"via-stitcher/internal/placement"

	"gopkg.in/yaml.v3"
)

// maxFileSize bounds job files.
const maxFileSize = 1 << 20

// Job is a stitching job file: the run configuration plus the files it reads
// and writes. Paths are relative to the job file.
type Job struct {
	Board       string `json:"board,omitempty" yaml:"board,omitempty"`
	Output      string `json:"output,omitempty" yaml:"output,omitempty"`
	Preview     string `json:"preview,omitempty" yaml:"preview,omitempty"`
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`

	placement.Config `yaml:",inline"`
}

// Default returns a job holding placement.DefaultConfig.
func Default() *Job {
	return &Job{Config: placement.DefaultConfig()}
}

// Load reads a YAML or JSON job file over the defaults. Unknown fields are an
// error. The configuration is not validated here, the engine does that at
// run time.
func Load(path string) (*Job, error) {
	return LoadOver(path, Default())
}

// LoadOver reads a job file over base. Fields the file omits keep the value
// they have in base.
func LoadOver(path string, base *Job) (*Job, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("job file must have .yaml, .yml or .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat job file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("job file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	job, err := parseOver(data, base)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", cleanPath, err)
	}
	job.resolve(filepath.Dir(cleanPath))
	return job, nil
}

// Parse decodes a job from YAML or JSON over the defaults.
func Parse(data []byte) (*Job, error) {
	return parseOver(data, Default())
}

func parseOver(data []byte, job *Job) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(job); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return job, nil
}

// resolve makes the job's relative paths relative to dir.
func (j *Job) resolve(dir string) {
	for _, p := range []*string{&j.Board, &j.Output, &j.Preview, &j.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Save writes the job as YAML.
func (j *Job) Save(path string) error {
	data, err := yaml.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
