package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assemble/internal/assemble"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Tasks []string `arg:"" optional:"" help:"Tasks to run (default task when omitted)"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunTasks(ctx, g, root, r.Tasks)
}

// RunTasks loads the assemblefile and runs tasks once.
func RunTasks(ctx context.Context, g *Global, root *CLI, tasks []string) (err error) {
	env, err := loadEnvironment(ctx, g, root)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); err == nil {
			err = cerr
		}
	}()
	return env.app.Run(assemble.WithTrigger(ctx, assemble.TriggerCLI), tasks...)
}
