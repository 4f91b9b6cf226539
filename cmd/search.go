package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZanzyTHEbar/boxel-survey/survey/search"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"
	"github.com/ZanzyTHEbar/boxel-survey/survey/watcher"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		focusName string
		visited   []string
		watch     bool
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "search <top>",
		Short: "Search a boxel and suggest where to go next",
		Long: `Search focuses a region inside the top boxel, gathers its systems from the
local records and the plotted route, and prints what to visit next. With
--watch it keeps following the route file until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			focus := top
			if focusName != "" {
				if focus, err = parseRegion(focusName); err != nil {
					return err
				}
			}

			opts, err := search.OptionsFromConfig(a.cfg.Search)
			if err != nil {
				return err
			}

			store, closeStore, err := a.openEmptyStore()
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := a.openRecords()
			if err != nil {
				return err
			}
			defer records.Close()

			deps := search.Deps{
				Empty:   store,
				Records: records,
				Catalog: sources.NoCatalog,
				Logger:  a.slog,
			}

			var route *watcher.RouteFile
			if a.cfg.Route.File != "" {
				route = watcher.NewRouteFile(a.cfg.Route.File, a.slog)
				if err := route.Reload(); err != nil {
					a.logger.Warn().Err(err).Str("path", route.Path()).Msg("Ignoring route file")
				}
				deps.Route = route
			}

			session := search.New(opts, deps)
			defer session.Close()

			restored := false
			if stateFile := a.cfg.Search.StateFile; stateFile != "" {
				if st, err := search.ReadState(stateFile); err == nil && st.Top.Equal(top.WithN2(0)) {
					// same search as last time: keep its start time and focus
					if err := session.Restore(st); err != nil {
						a.logger.Warn().Err(err).Msg("Could not restore search state")
					} else {
						restored = !st.Focus.IsZero()
					}
				}
			}

			if !restored {
				if err := session.Reset(top, true); err != nil {
					return err
				}
			}
			if !restored || focusName != "" {
				if err := session.SetFocus(focus, false); err != nil {
					return err
				}
			}
			session.Wait()

			for _, name := range visited {
				if !session.MarkVisited(name, nil) {
					a.logger.Warn().Str("system", name).Msg("Not inside the focus region")
				}
			}

			if err := printSearch(cmd.Context(), cmd.OutOrStdout(), session); err != nil {
				return err
			}

			if watch && route != nil {
				if err := followRoute(cmd.Context(), cmd.OutOrStdout(), session, route); err != nil {
					return err
				}
			}

			if save && a.cfg.Search.StateFile != "" {
				if err := session.SaveState(a.cfg.Search.StateFile); err != nil {
					return err
				}
				a.logger.Info().Str("path", a.cfg.Search.StateFile).Msg("Search state saved")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&focusName, "focus", "", "region inside the top boxel to search (default the top boxel)")
	cmd.Flags().StringArrayVar(&visited, "visited", nil, "system visited during this search, may be repeated")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep following the route file until interrupted")
	cmd.Flags().BoolVar(&save, "save", false, "save the search state when done")
	return cmd
}

func printSearch(ctx context.Context, w io.Writer, session *search.Session) error {
	view := session.Snapshot()

	fmt.Fprintf(w, "top:      %s\n", view.Top.Prefix())
	fmt.Fprintf(w, "focus:    %s\n", view)
	fmt.Fprintf(w, "visited:  %d of %d known\n", view.CountVisited, len(view.Members))
	for _, m := range view.Members {
		mark := " "
		if m.Visited {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s\n", mark, m.Name.Name())
	}

	progress, err := session.Progress(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "progress: %s regions\n", progress)
	fmt.Fprintf(w, "next:     %s\n", session.NextToVisit().Text())
	return nil
}

// followRoute merges every new route into the session and prints the next
// suggestion, until interrupted.
func followRoute(ctx context.Context, w io.Writer, session *search.Session, route *watcher.RouteFile) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	route.OnChange(func(hops []sources.RouteHop) {
		session.UpdateFromRoute(hops)
	})
	if err := route.Start(ctx); err != nil {
		return err
	}
	defer route.Close()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "%s: %s next %s\n", ev.Reason, ev.View, session.NextToVisit().Text())
		}
	}
}
