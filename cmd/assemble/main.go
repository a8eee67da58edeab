package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assemble/cmd/assemble/commands"
	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("assemble"),
		kong.Description("Static site generator and build tool driven by an assemblefile."),
		kong.UsageOnError(),
	)
	err := parser.Run(commands.NewGlobal(), cli)
	os.Exit(aerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err))
}
