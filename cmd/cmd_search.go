// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jcodagnone/nearby/dispatch"
	"github.com/jcodagnone/nearby/permission"
	"github.com/jcodagnone/nearby/presenter"
	"github.com/jcodagnone/nearby/utils/textutils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	positionOptions
	Filter   string
	StateDir string
	Grant    bool
	Deny     bool
	Map      bool
}

var searchOpts = &searchOptions{}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "search places around a position",
	Long: `
Asks for the location permission the way a device would and, once granted,
lists the places around --lat/--lng sorted by distance.

A denied answer is remembered in --state-dir, so the next run explains why
the location is needed before asking again.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSearch(cmd, searchOpts)
	},
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".nearby"
	}

	return filepath.Join(dir, "nearby")
}

func init() {
	searchOpts.register(searchCmd)
	searchCmd.Flags().StringVar(&searchOpts.Filter, "filter", "", "comma separated categories to keep (e.g. cafe,bar)")
	searchCmd.Flags().StringVar(&searchOpts.StateDir, "state-dir", defaultStateDir(), "directory remembering permission answers")
	searchCmd.Flags().BoolVar(&searchOpts.Grant, "grant", false, "grant the location permission without prompting")
	searchCmd.Flags().BoolVar(&searchOpts.Deny, "deny", false, "deny the location permission without prompting")
	searchCmd.Flags().BoolVar(&searchOpts.Map, "map", false, "print the map extent of the results")
	searchCmd.MarkFlagsMutuallyExclusive("grant", "deny")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a := newApp(rootOptions)
	defer a.Close()

	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}

	loop := dispatch.New()
	loop.Start(ctx)

	defer loop.Stop()

	view := &terminalView{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	platform := &terminalPlatform{stateDir: opts.StateDir, in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}

	switch {
	case opts.Grant:
		platform.answer = &opts.Grant
	case opts.Deny:
		denied := false
		platform.answer = &denied
	}

	done := newResolution(view)
	gate := permission.NewGate(loop, platform, view, done)
	search := presenter.NewSearchPresenter(ctx, loop, repo, gate, view, presenter.FixedLocation{Point: opts.position(cmd)}, opts.Radius)
	filters := presenter.NewFilterPresenter(search, presenter.DefaultCategories)
	done.starter = search
	gate.SetStarter(done)

	var evalErr error

	loop.Sync(func() {
		if opts.Filter != "" {
			dialog := filters.Open(search.Criteria())
			for _, tag := range textutils.SplitTags(opts.Filter) {
				dialog.Set(tag, true)
			}

			dialog.Close(true)
		}

		evalErr = gate.Evaluate(ctx)
	})

	if evalErr != nil {
		return evalErr
	}

	if !waitForDecision(ctx, loop, gate, done, platform) {
		return ctx.Err()
	}

	search.Wait()

	if opts.Map {
		var values map[string]string

		loop.Sync(func() { values = search.MapRequest().Values() })
		printMapValues(cmd, values)
	}

	return nil
}

// waitForDecision waits until the gate either started the search or
// reported a denial. A shown rationale is acknowledged after the user reads
// it.
func waitForDecision(
	ctx context.Context,
	loop *dispatch.Loop,
	gate *permission.Gate,
	done *resolution,
	platform *terminalPlatform,
) bool {
	var state permission.State

	loop.Sync(func() { state = gate.State() })

	if state == permission.RationaleNeeded {
		if platform.answer == nil && isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprint(platform.out, "Press Enter to continue. ")

			_, _ = bufio.NewReader(platform.in).ReadString('\n')
		}

		var ackErr error

		loop.Sync(func() { ackErr = gate.AcknowledgeRationale(ctx) })

		if ackErr != nil {
			fmt.Fprintln(platform.out, ackErr)

			return true
		}
	}

	select {
	case <-done.done:
		return true
	case <-ctx.Done():
		return false
	}
}

func printMapValues(cmd *cobra.Command, values map[string]string) {
	if len(values) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No extent to show.")

		return
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, values[k])
	}
}
