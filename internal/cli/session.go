package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/nutrihub/internal/paths"
	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/internal/workflow"
	"github.com/mesh-intelligence/nutrihub/pkg/sqlite"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// repository attaches the store on first use and returns the repository over
// it. run detaches the store when the command finishes.
func (a *app) repository() (*repository.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}

	dataDir, err := paths.ResolveDataDir(a.dataDir, a.config.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg := types.Config{
		Backend:      a.config.GetString(cfgKeyBackend),
		DataDir:      dataDir,
		SyncStrategy: a.config.GetString(cfgKeySyncStrategy),
	}
	if err := cfg.Validate(); err != nil {
		return nil, userError(fmt.Errorf("config: %w", err))
	}

	store := sqlite.NewBackend()
	if err := store.Attach(cfg); err != nil {
		return nil, sysError(fmt.Errorf("attach store: %w", err))
	}
	a.log.Debug("store attached", "data_dir", dataDir, "sync_strategy", cfg.SyncStrategy)

	a.store = store
	a.repo = repository.New(store, repository.WithLogger(a.log))
	return a.repo, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Detach()
	a.store, a.repo = nil, nil
	return err
}

func (a *app) workflowOpts() []workflow.Option {
	return []workflow.Option{workflow.WithLogger(a.log)}
}

// report prints messages and logs the remaining events.
func (a *app) report(events []workflow.Event) {
	for _, ev := range events {
		if msg, ok := ev.(workflow.ShowMessage); ok {
			fmt.Fprintln(a.stderr, msg.Text)
			continue
		}
		a.log.Debug("workflow event", "event", fmt.Sprint(ev))
	}
}

// rejected turns the first queued message into a user error and reports the
// other events.
func (a *app) rejected() error {
	var reason string
	var rest []workflow.Event
	for _, ev := range a.events.Drain() {
		if msg, ok := ev.(workflow.ShowMessage); ok && reason == "" {
			reason = msg.Text
			continue
		}
		rest = append(rest, ev)
	}
	a.report(rest)
	if reason == "" {
		reason = "rejected"
	}
	return userError(errors.New(reason))
}

// navigatedPlan returns the plan id of the last plan navigation queued.
func (a *app) navigatedPlan() (int64, error) {
	events := a.events.Drain()
	a.report(events)
	for i := len(events) - 1; i >= 0; i-- {
		nav, ok := events[i].(workflow.Navigate)
		if !ok {
			continue
		}
		route, id, err := workflow.ParseRoute(nav.Route)
		if err != nil {
			return 0, sysError(err)
		}
		if route == workflow.RouteAddOrEditPlan && id != types.InvalidID {
			return id, nil
		}
	}
	return 0, sysError(errors.New("no plan was opened"))
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("invalid %s id %q", kind, s))
	}
	return id, nil
}

func notFound(kind string, id int64) error {
	return userError(fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound))
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printTable writes tab-separated rows aligned, without trailing blanks.
func printTable(w io.Writer, header string, rows []string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, row := range rows {
		fmt.Fprintln(tw, row)
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
