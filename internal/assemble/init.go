package assemble

import (
	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/session"
	"git.home.luguber.info/inful/assemble/internal/stack"
	"git.home.luguber.info/inful/assemble/internal/task"
	"git.home.luguber.info/inful/assemble/internal/template"
)

// sessionName names the per-instance session store.
const sessionName = "assemble"

// initialize performs one-time setup: collaborators, default view types,
// default middleware, default settings and run event listeners.
func initialize(a *App) {
	a.engine = a.newEngine()
	a.session = session.New(sessionName)

	runnerOpts := []task.Option{task.WithExecHook(a.runTask)}
	if a.concurrency > 0 {
		runnerOpts = append(runnerOpts, task.WithConcurrency(a.concurrency))
	}
	a.runner = task.New(runnerOpts...)

	a.engine.Create(template.TypePage, "pages")
	a.engine.Create(template.TypeLayout, "layouts")
	a.engine.Create(template.TypePartial, "partials")

	a.stack = stack.New()
	stack.UseDefaults(a.stack)
	a.router = stack.NewRouter(stack.DefaultRoutes()...)

	a.settings = config.NewSettings(map[string]bool{
		config.SettingDefaultRoutes: false,
		config.SettingMinimalConfig: false,
	})
	for name, on := range a.initial {
		a.settings.Set(name, on)
	}

	a.runner.OnEvent(a.onEvent)
}
