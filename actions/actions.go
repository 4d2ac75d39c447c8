// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package actions implements the form interaction primitives.
//
// Each primitive locates its target once and performs a single interaction.
// In Lenient mode a missing target makes the primitive a silent no-op; in
// Strict mode it returns an error wrapping dom.ErrNotFound. Either way the
// outcome is reported to the Recorder, so callers can tell "found nothing"
// apart from "succeeded".
package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/locate"
	"github.com/ttbt-io/pagepilot/poll"
)

// Selectors used by the primitives.
const (
	CheckboxSelector = `input[type="checkbox"]`
	OptionSelector   = `div[role="option"]`
)

// DropdownSelector returns the selector of the custom dropdown labelled label.
func DropdownSelector(label string) string {
	return `div[role="button"][aria-label=` + dom.CSSString(label) + `]`
}

// Mode selects how missing targets are reported.
type Mode int

const (
	Lenient Mode = iota
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// Outcome is what an operation did.
type Outcome string

const (
	// Performed means the interaction happened.
	Performed Outcome = "performed"
	// Skipped means the target was found but needed no interaction.
	Skipped Outcome = "skipped"
	// Absent means the target was not found.
	Absent Outcome = "absent"
	// Failed means the driver returned an error.
	Failed Outcome = "failed"
)

// Recorder receives one call per operation step.
type Recorder interface {
	Record(op, target string, outcome Outcome, err error)
}

// Options configures a Toolkit.
type Options struct {
	Mode Mode
	// Interval between two checks while waiting. Defaults to poll.DefaultInterval.
	Interval time.Duration
	// ErrorPolicy for driver errors raised while waiting.
	ErrorPolicy poll.ErrorPolicy
	Logger      poll.Logger
	Recorder    Recorder
}

// Toolkit runs the primitives against one document.
type Toolkit struct {
	doc  dom.Document
	opts Options
}

// New returns a Toolkit operating on doc.
func New(doc dom.Document, opts Options) *Toolkit {
	if opts.Interval <= 0 {
		opts.Interval = poll.DefaultInterval
	}
	return &Toolkit{doc: doc, opts: opts}
}

// Document returns the document the Toolkit operates on.
func (t *Toolkit) Document() dom.Document {
	return t.doc
}

// Strict reports whether missing targets are errors.
func (t *Toolkit) Strict() bool {
	return t.opts.Mode == Strict
}

// WaitOptions returns the poll options derived from the Toolkit's options.
func (t *Toolkit) WaitOptions() []poll.Option {
	opts := []poll.Option{
		poll.WithInterval(t.opts.Interval),
		poll.WithErrorPolicy(t.opts.ErrorPolicy),
	}
	if t.opts.Logger != nil {
		opts = append(opts, poll.WithLogger(t.opts.Logger))
	}
	return opts
}

// Logf logs through the configured logger, if any.
func (t *Toolkit) Logf(format string, args ...any) {
	if t.opts.Logger != nil {
		t.opts.Logger.Logf(format, args...)
	}
}

// Record reports an outcome to the recorder and the logger.
func (t *Toolkit) Record(op, target string, outcome Outcome, err error) {
	if err != nil {
		t.Logf("%s %s: %s: %v", op, target, outcome, err)
	} else {
		t.Logf("%s %s: %s", op, target, outcome)
	}
	if t.opts.Recorder != nil {
		t.opts.Recorder.Record(op, target, outcome, err)
	}
}

// NotFound records an absent target and returns the error the mode calls for.
func (t *Toolkit) NotFound(op, target string) error {
	var err error
	if t.Strict() {
		err = fmt.Errorf("%s %q: %w", op, target, dom.ErrNotFound)
	}
	t.Record(op, target, Absent, err)
	return err
}

// Fail records a driver error and returns it wrapped with the operation.
func (t *Toolkit) Fail(op, target string, err error) error {
	err = fmt.Errorf("%s %q: %w", op, target, err)
	t.Record(op, target, Failed, err)
	return err
}

// Click clicks n and records the outcome under op.
func (t *Toolkit) Click(ctx context.Context, op, target string, n dom.Node) error {
	if err := n.Click(ctx); err != nil {
		return t.Fail(op, target, err)
	}
	t.Record(op, target, Performed, nil)
	return nil
}

// SetFieldValue sets the value of the element matching sel and dispatches
// the input and change events form frameworks listen for.
func (t *Toolkit) SetFieldValue(ctx context.Context, sel, value string) error {
	const op = "set"
	n, err := t.doc.Query(ctx, sel)
	if err != nil {
		return t.Fail(op, sel, err)
	}
	defer dom.Release(ctx, n)
	if n == nil {
		return t.NotFound(op, sel)
	}
	if err := n.SetValue(ctx, value); err != nil {
		return t.Fail(op, sel, err)
	}
	if err := n.Dispatch(ctx, "input", "change"); err != nil {
		return t.Fail(op, sel, err)
	}
	t.Record(op, sel, Performed, nil)
	return nil
}

// ClickCheckboxIfUnchecked clicks the element matching sel only when its
// aria-checked attribute is "false". Native checkboxes are handled by
// ClickAllUncheckedCheckboxes.
func (t *Toolkit) ClickCheckboxIfUnchecked(ctx context.Context, sel string) error {
	const op = "check"
	n, err := t.doc.Query(ctx, sel)
	if err != nil {
		return t.Fail(op, sel, err)
	}
	defer dom.Release(ctx, n)
	if n == nil {
		return t.NotFound(op, sel)
	}
	v, _, err := n.Attribute(ctx, "aria-checked")
	if err != nil {
		return t.Fail(op, sel, err)
	}
	if v != "false" {
		t.Record(op, sel, Skipped, nil)
		return nil
	}
	return t.Click(ctx, op, sel, n)
}

// ClickElement clicks the element matching sel.
func (t *Toolkit) ClickElement(ctx context.Context, sel string) error {
	const op = "click"
	n, err := t.doc.Query(ctx, sel)
	if err != nil {
		return t.Fail(op, sel, err)
	}
	defer dom.Release(ctx, n)
	if n == nil {
		return t.NotFound(op, sel)
	}
	return t.Click(ctx, op, sel, n)
}

// ClickAllUncheckedCheckboxes clicks every native checkbox that is not
// checked and returns how many were clicked.
func (t *Toolkit) ClickAllUncheckedCheckboxes(ctx context.Context) (int, error) {
	const op = "check-all"
	nodes, err := t.doc.QueryAll(ctx, CheckboxSelector)
	if err != nil {
		return 0, t.Fail(op, CheckboxSelector, err)
	}
	defer dom.Release(ctx, nodes...)
	clicked := 0
	for i, n := range nodes {
		target := fmt.Sprintf("%s[%d]", CheckboxSelector, i)
		checked, err := n.Checked(ctx)
		if err != nil {
			return clicked, t.Fail(op, target, err)
		}
		if checked {
			t.Record(op, target, Skipped, nil)
			continue
		}
		if err := t.Click(ctx, op, target, n); err != nil {
			return clicked, err
		}
		clicked++
	}
	return clicked, nil
}

// SelectDropdownOption opens the custom dropdown labelled label, waits for
// its options to be listed and clicks the one whose trimmed text is exactly
// value. The wait for options ends only with ctx.
func (t *Toolkit) SelectDropdownOption(ctx context.Context, label, value string) error {
	const op = "select"
	sel := DropdownSelector(label)
	dropdown, err := t.doc.Query(ctx, sel)
	if err != nil {
		return t.Fail(op, sel, err)
	}
	defer dom.Release(ctx, dropdown)
	if dropdown == nil {
		return t.NotFound(op, sel)
	}
	if err := t.Click(ctx, op, sel, dropdown); err != nil {
		return err
	}

	options, err := locate.All(ctx, t.doc, OptionSelector, t.WaitOptions()...)
	if err != nil {
		return t.Fail(op, OptionSelector, err)
	}
	defer dom.Release(ctx, options...)
	target := OptionSelector + "=" + value
	for _, o := range options {
		text, err := o.TextContent(ctx)
		if err != nil {
			return t.Fail(op, target, err)
		}
		if strings.TrimSpace(text) == value {
			return t.Click(ctx, op, target, o)
		}
	}
	return t.NotFound(op, target)
}
