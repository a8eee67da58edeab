package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

const starterAssemblefile = `# assemblefile: tasks and pipelines for assemble
version: "1"

options:
  ext: .html
  layout: default

settings:
  default routes: false

data:
  - data/*.yaml

layouts:
  - templates/layouts/*.html
partials:
  - templates/partials/*.html

tasks:
  - name: pages
    src: ["content/**/*.md"]
    dest: public
  - name: assets
    copy:
      src: ["assets/**/*"]
      dest: public/assets
  - name: default
    deps: [pages, assets]

watch:
  - patterns: ["content/**/*.md", "templates/**/*.html"]
    tasks: [pages]

history:
  path: .assemble/history.db

logging:
  level: info
  format: text
`

// Init writes a starter assemblefile to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return aerrors.New(aerrors.CategoryConfig, aerrors.SeverityError,
			"configuration file already exists (use --force to overwrite)").
			WithContext("path", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(starterAssemblefile), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
