package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assemble/internal/assemble"
	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/diff"
	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

// Operand names resolved against the engine instead of the filesystem.
const (
	operandEnv  = "env"
	operandData = "data"
)

// DiffCmd implements the 'diff' command.
type DiffCmd struct {
	A      string `arg:"" optional:"" default:"env" help:"File, 'env' or 'data'"`
	B      string `arg:"" optional:"" default:"data" help:"File, 'env' or 'data'"`
	Method string `short:"m" default:"json" help:"Diff method (json, lines or chars)"`
}

func (d *DiffCmd) Run(g *Global, root *CLI) error {
	method, err := diff.ParseMethod(d.Method)
	if err != nil {
		return aerrors.ValidationFailed("method", err.Error())
	}

	app := assemble.New(config.Options{}, assemble.WithStderr(g.Stderr))
	if needsEngine(d.A) || needsEngine(d.B) {
		env, err := loadEnvironment(context.Background(), g, root)
		if err != nil {
			return err
		}
		defer func() { _ = env.Close() }()
		app = env.app
	}

	a, err := operand(app, d.A)
	if err != nil {
		return err
	}
	b, err := operand(app, d.B)
	if err != nil {
		return err
	}
	app.Diff(a, b, method)
	return nil
}

func needsEngine(name string) bool {
	return name == operandEnv || name == operandData
}

// operand resolves a diff side. YAML and JSON files are decoded so they are
// compared structurally; other files are compared as text.
func operand(app *assemble.App, name string) (any, error) {
	switch name {
	case operandEnv:
		return app.Engine().Env(), nil
	case operandData:
		return app.Engine().Data(), nil
	}
	// #nosec G304 -- operand path comes from the CLI
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.CategoryFileSystem, aerrors.SeverityFatal, "read diff operand").
			WithContext("path", name)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		var v any
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, aerrors.ValidationFailed("operand", fmt.Sprintf("%s: %v", name, err))
		}
		return v, nil
	default:
		return string(raw), nil
	}
}
