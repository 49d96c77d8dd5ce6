// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jcodagnone/nearby/permission"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/utils/textutils"
)

const rationaleText = `nearby needs your location to find places around you. Your position is
only sent to the selected places source.`

// terminalView prints places as a table on out and messages on errOut.
type terminalView struct {
	out    io.Writer
	errOut io.Writer
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n-1]) + "…"
}

func pad(s string, n int) string {
	s = truncate(s, n)

	return s + strings.Repeat(" ", n-utf8.RuneCountInString(s))
}

func (v *terminalView) RenderPlaces(ps []*places.Place) {
	if len(ps) == 0 {
		fmt.Fprintln(v.out, "No places found.")

		return
	}

	a, b, c := strings.Repeat("─", 32), strings.Repeat("─", 14), strings.Repeat("─", 9)
	fmt.Fprintf(v.out, "╭─%s─┬─%s─┬─%s─╮\n", a, b, c)
	fmt.Fprintf(v.out, "│ %s │ %s │ %s │\n", pad("Name", 32), pad("Category", 14), pad("Distance", 9))
	fmt.Fprintf(v.out, "├─%s─┼─%s─┼─%s─┤\n", a, b, c)

	for _, p := range ps {
		fmt.Fprintf(v.out, "│ %s │ %s │ %9s │\n", pad(p.Name, 32), pad(p.Category, 14), textutils.FormatDistance(p.Distance))
	}

	fmt.Fprintf(v.out, "╰─%s─┴─%s─┴─%s─╯\n", a, b, c)
}

func (v *terminalView) ShowMessage(msg string) {
	fmt.Fprintln(v.errOut, msg)
}

func (v *terminalView) ShowRationale() {
	fmt.Fprintln(v.errOut, rationaleText)
}

// terminalPlatform asks for the location permission on the terminal. Denials
// are remembered in stateDir, which makes the next run show the rationale.
type terminalPlatform struct {
	stateDir string
	in       io.Reader
	out      io.Writer
	// answer, when set, is used instead of prompting
	answer *bool
}

func (p *terminalPlatform) deniedMarker() string {
	return filepath.Join(p.stateDir, "location.denied")
}

func (p *terminalPlatform) ShouldShowRationale(context.Context, string) bool {
	_, err := os.Stat(p.deniedMarker())

	return err == nil
}

func (p *terminalPlatform) Request(ctx context.Context, id string) (<-chan permission.Response, error) {
	ch := make(chan permission.Response, 1)

	go func() {
		defer close(ch)

		granted, err := p.ask(id)
		if err != nil {
			log.Printf("reading permission answer: %v", err)
		}

		if err := p.remember(granted); err != nil {
			log.Printf("recording permission answer: %v", err)
		}

		select {
		case ch <- permission.Response{Results: []bool{granted}}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

func (p *terminalPlatform) ask(id string) (bool, error) {
	if p.answer != nil {
		return *p.answer, nil
	}

	fmt.Fprintf(p.out, "Allow nearby to access your location (%s)? [y/N] ", id)

	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *terminalPlatform) remember(granted bool) error {
	if granted {
		err := os.Remove(p.deniedMarker())
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	if err := os.MkdirAll(p.stateDir, 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	return os.WriteFile(p.deniedMarker(), nil, 0o600)
}

// resolution reports when the permission flow reached a decision. It sits
// between the gate and the real Starter and Notifier.
type resolution struct {
	starter  permission.Starter
	notifier permission.Notifier
	once     sync.Once
	done     chan struct{}
}

func newResolution(notifier permission.Notifier) *resolution {
	return &resolution{notifier: notifier, done: make(chan struct{})}
}

func (r *resolution) resolve() {
	r.once.Do(func() { close(r.done) })
}

func (r *resolution) Start() {
	r.starter.Start()
	r.resolve()
}

func (r *resolution) ShowMessage(msg string) {
	r.notifier.ShowMessage(msg)
	r.resolve()
}
