package kokoro

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/loqalabs/loqa-voice/internal/apperr"
)

// ManifestFile is the optional descriptor shipped next to the model.
const ManifestFile = "manifest.yaml"

// Manifest describes a packaged model directory.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	SampleRate  int      `yaml:"sample_rate"`
	NumSpeakers int      `yaml:"num_speakers"`
	Languages   []string `yaml:"languages,omitempty"`
}

// LoadManifest reads modelDir/manifest.yaml. The boolean is false when the
// directory has no manifest, which is not an error.
func LoadManifest(modelDir string) (Manifest, bool, error) {
	data, err := os.ReadFile(filepath.Join(modelDir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, apperr.IO("read model manifest", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, apperr.Argument("parse model manifest", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}

// Validate ensures manifest contains usable values.
func (m Manifest) Validate() error {
	if m.SampleRate < 0 {
		return apperr.Argumentf("manifest sample_rate must be >= 0")
	}
	if m.NumSpeakers < 0 {
		return apperr.Argumentf("manifest num_speakers must be >= 0")
	}
	return nil
}

// CheckSpeaker rejects speaker ids outside the range the model ships.
func (m Manifest) CheckSpeaker(sid int) error {
	if m.NumSpeakers > 0 && sid >= m.NumSpeakers {
		return apperr.Argument("check speaker", fmt.Errorf("speaker id %d out of range, %s has %d speakers", sid, m.displayName(), m.NumSpeakers))
	}
	return nil
}

func (m Manifest) displayName() string {
	if m.Name == "" {
		return "model"
	}
	return m.Name
}
