package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// templateConfig mirrors the configuration schema for template rendering, so
// the generated template cannot drift from what the parser accepts.
type templateConfig struct {
	Destination string `yaml:"destination"`
	Copy        struct {
		Paths []string `yaml:"paths"`
	} `yaml:"copy"`
	Archive struct {
		Paths   []string `yaml:"paths"`
		Prefix  string   `yaml:"prefix"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"archive"`
	Prune struct {
		Enabled  bool `yaml:"enabled"`
		KeepLast int  `yaml:"keep_last"`
		DryRun   bool `yaml:"dry_run"`
	} `yaml:"prune"`
}

const templateHeader = `# stashbak configuration.
#
# destination is the locally mounted folder your cloud-sync client watches.
# copy.paths are copied into the destination as-is on every run.
# archive.paths are bundled into one timestamped zip archive per run.
#
# Edit this file, then run stashbak again.

`

// The drive block is commented out so a fresh template parses cleanly; path
// validation rejects an empty drive.path.
const templateDriveExample = `
# Import files from a removable drive when it is connected. The step is
# skipped with a warning while the drive is absent.
# drive:
#   path: /media/usb
#   files:
#     - keepass.kdbx
#   subfolder: usb
`

// Template renders the first-run configuration template with every field
// present at its default value.
func Template() ([]byte, error) {
	tpl := templateConfig{}
	tpl.Destination = "/path/to/cloud/folder"
	tpl.Copy.Paths = []string{}
	tpl.Archive.Paths = []string{}
	tpl.Archive.Prefix = DefaultArchivePrefix
	tpl.Archive.Exclude = []string{}
	tpl.Prune.KeepLast = DefaultKeepLast

	body, err := yaml.Marshal(&tpl)
	if err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}

	out := append([]byte(templateHeader), body...)
	return append(out, []byte(templateDriveExample)...), nil
}

// WriteTemplate writes the configuration template to path. It refuses to
// overwrite an existing file.
func WriteTemplate(path string) error {
	data, err := Template()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}
