package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"git.home.luguber.info/inful/assemble/internal/config"
	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
	"git.home.luguber.info/inful/assemble/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	RunID string        `name:"run" help:"Show the tasks of one run"`
	Since time.Duration `default:"168h" help:"How far back to read runs"`
	Limit int           `short:"n" default:"20" help:"Maximum number of runs listed"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	root.configureLogging(cfg.Logging)
	return RunHistory(context.Background(), g.Stdout, cfg, h.RunID, h.Since, h.Limit)
}

// RunHistory prints the runs recorded in the history database of cfg.
func RunHistory(ctx context.Context, w io.Writer, cfg *config.Config, runID string, since time.Duration, limit int) error {
	if cfg.History.Path == "" {
		return aerrors.ValidationFailed("history.path", "run history is not configured")
	}
	store, err := eventstore.NewSQLiteStore(resolve(cfg.Dir, cfg.History.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewRunHistoryProjection(store, 0)
	if err := projection.Rebuild(ctx, time.Now().Add(-since)); err != nil {
		return err
	}

	r := lipgloss.NewRenderer(w)
	if runID != "" {
		run, ok := projection.Get(runID)
		if !ok {
			return aerrors.New(aerrors.CategoryValidation, aerrors.SeverityError, "run not found").
				WithContext("run_id", runID)
		}
		_, err := fmt.Fprintln(w, runTable(r, run))
		return err
	}

	runs := projection.List(limit)
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	_, err = fmt.Fprintln(w, runsTable(r, runs))
	return err
}

func newTable(r *lipgloss.Renderer, headers ...string) *table.Table {
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func runsTable(r *lipgloss.Renderer, runs []*eventstore.RunSummary) *table.Table {
	t := newTable(r, "RUN", "STARTED", "STATUS", "TRIGGER", "TASKS", "DURATION")
	for _, run := range runs {
		t.Row(
			run.RunID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.Trigger,
			strings.Join(run.Tasks, ","),
			run.Duration.Round(time.Millisecond).String(),
		)
	}
	return t
}

func runTable(r *lipgloss.Renderer, run *eventstore.RunSummary) *table.Table {
	t := newTable(r, "TASK", "STATUS", "FILES", "DURATION", "ERROR")
	for _, res := range run.Results {
		t.Row(
			res.Task,
			res.Status,
			strconv.Itoa(res.Files),
			res.Duration.Round(time.Millisecond).String(),
			res.Error,
		)
	}
	return t
}
