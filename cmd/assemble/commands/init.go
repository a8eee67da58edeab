package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/assemble/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing assemblefile"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g.Stdout, root.Config, i.Force)
}

// RunInit writes the starter assemblefile to path.
func RunInit(w io.Writer, path string, force bool) error {
	_, _ = fmt.Fprintf(w, "Writing assemblefile to %s\n", path)
	if err := config.Init(path, force); err != nil {
		_, _ = fmt.Fprintln(w, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintln(w, "Initialized successfully")
	return nil
}
