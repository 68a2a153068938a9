// Package charmmeta loads the charm metadata the daemon consumes at
// startup: metadata.yaml (or .yml) for the charm name, and lucky.yaml
// for the LuckyMetadata the Hook Dispatcher and Cron Engine act on.
package charmmeta

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/katharostech/lucky/internal/types"
)

// rawMetadataYAML is the subset of metadata.yaml the daemon core
// actually reads; the charm name is otherwise only relevant to the
// build tool.
type rawMetadataYAML struct {
	Name string `yaml:"name"`
}

// Load reads metadata.yaml/.yml and lucky.yaml from charmDir and
// returns the charm name plus its LuckyMetadata.
func Load(charmDir string) (name string, meta types.LuckyMetadata, err error) {
	name, err = loadName(charmDir)
	if err != nil {
		return "", types.LuckyMetadata{}, err
	}

	meta, err = loadLuckyMetadata(charmDir)
	if err != nil {
		return "", types.LuckyMetadata{}, err
	}
	return name, meta, nil
}

func loadName(charmDir string) (string, error) {
	for _, candidate := range []string{"metadata.yaml", "metadata.yml"} {
		data, err := os.ReadFile(filepath.Join(charmDir, candidate))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("read %s: %w", candidate, err)
		}
		var raw rawMetadataYAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return "", fmt.Errorf("parse %s: %w", candidate, err)
		}
		return raw.Name, nil
	}
	return "", fmt.Errorf("no metadata.yaml or metadata.yml found in %s", charmDir)
}

func loadLuckyMetadata(charmDir string) (types.LuckyMetadata, error) {
	path := filepath.Join(charmDir, "lucky.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.LuckyMetadata{}, nil
		}
		return types.LuckyMetadata{}, fmt.Errorf("read lucky.yaml: %w", err)
	}

	var meta types.LuckyMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return types.LuckyMetadata{}, fmt.Errorf("parse lucky.yaml: %w", err)
	}
	return meta, nil
}
