package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// DefaultConfigName is looked up in the working directory when no file is given
const DefaultConfigName = ".hardcheck.yml"

// ConfigRepository locates and loads the run configuration
type ConfigRepository struct {
	workDir   string
	configDir string // user configuration directory, may be empty
	parser    *ConfigParser
}

// NewConfigRepository creates a repository searching workDir, then
// configDir/hardcheck/config.yml
func NewConfigRepository(workDir, configDir string) *ConfigRepository {
	return &ConfigRepository{
		workDir:   workDir,
		configDir: configDir,
		parser:    NewConfigParser(),
	}
}

// Load returns the configuration and the file it came from. An explicit path
// must exist; without one, a missing default file yields the defaults and "".
func (r *ConfigRepository) Load(explicit string) (entities.RunConfig, string, error) {
	if explicit != "" {
		config, err := r.parser.ParseFile(explicit)
		if err != nil {
			return entities.RunConfig{}, "", err
		}
		return config, explicit, nil
	}

	for _, candidate := range r.candidates() {
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return entities.RunConfig{}, "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}

		config, err := r.parser.ParseFile(candidate)
		if err != nil {
			return entities.RunConfig{}, "", err
		}
		return config, candidate, nil
	}

	return entities.DefaultRunConfig(), "", nil
}

func (r *ConfigRepository) candidates() []string {
	var paths []string
	if r.workDir != "" {
		paths = append(paths, filepath.Join(r.workDir, DefaultConfigName))
	}
	if r.configDir != "" {
		paths = append(paths, filepath.Join(r.configDir, "hardcheck", "config.yml"))
	}
	return paths
}
