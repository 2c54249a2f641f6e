// SPDX-License-Identifier: Apache-2.0

package pipelinerebuild

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultOutputPath matches the original tool's fixed output filename.
const DefaultOutputPath = "./rebuilt-pipeline.yml"

// SavePipeline writes docs as a YAML sequence to path.
func SavePipeline(path string, docs []map[string]any) error {
	data, err := yaml.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encoding rebuilt pipeline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
