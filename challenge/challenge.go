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

// Package challenge drives the accessibility challenge menu flow of a
// challenge widget: open the info menu, pick the accessibility challenge
// entry, wait for the text answer field, optionally switch the widget
// language, and later submit an answer supplied by the caller.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ttbt-io/pagepilot/actions"
	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/locate"
	"github.com/ttbt-io/pagepilot/poll"
)

// Defaults for Options.
const (
	DefaultMenuSelector     = `#menu-info`
	DefaultItemSelector     = `[role="menuitem"]`
	DefaultInputSelector    = `input[name="captcha"]`
	DefaultLanguageSelector = `[aria-label*="Select a language"]`
	DefaultOptionSelector   = `[role="option"]`
	DefaultSubmitSelector   = `.button-submit`
	DefaultLanguage         = "Dutch"
)

// DefaultItemLabel matches the menu entry in English and Dutch.
var DefaultItemLabel = regexp.MustCompile(`Accessibility Challenge|Toegankelijkheidsuitdaging`)

// Options overrides the selectors and labels of the flow. Zero values
// select the defaults.
type Options struct {
	MenuSelector     string
	ItemSelector     string
	ItemLabel        *regexp.Regexp
	InputSelector    string
	LanguageSelector string
	OptionSelector   string
	SubmitSelector   string

	// Language is matched as a substring of the language option's text.
	Language string
	// SkipLanguage leaves the widget language unchanged.
	SkipLanguage bool
	// LanguageTimeout bounds the wait for the language option once the
	// selector is open. Zero waits until ctx ends.
	LanguageTimeout time.Duration
}

func (o Options) withDefaults() Options {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&o.MenuSelector, DefaultMenuSelector)
	def(&o.ItemSelector, DefaultItemSelector)
	def(&o.InputSelector, DefaultInputSelector)
	def(&o.LanguageSelector, DefaultLanguageSelector)
	def(&o.OptionSelector, DefaultOptionSelector)
	def(&o.SubmitSelector, DefaultSubmitSelector)
	def(&o.Language, DefaultLanguage)
	if o.ItemLabel == nil {
		o.ItemLabel = DefaultItemLabel
	}
	return o
}

func innerTextMatches(re *regexp.Regexp) locate.MatchFunc {
	return func(ctx context.Context, n dom.Node) (bool, error) {
		text, err := n.InnerText(ctx)
		return re.MatchString(text), err
	}
}

func innerTextContains(sub string) locate.MatchFunc {
	return func(ctx context.Context, n dom.Node) (bool, error) {
		text, err := n.InnerText(ctx)
		return strings.Contains(text, sub), err
	}
}

// Run opens the accessibility challenge. Each step starts only after the
// previous wait resolved. Waits end only with ctx, except the language
// option wait when LanguageTimeout is set.
func Run(ctx context.Context, tk *actions.Toolkit, opts Options) error {
	opts = opts.withDefaults()
	doc := tk.Document()
	wait := tk.WaitOptions()

	menu, err := locate.Element(ctx, doc, opts.MenuSelector, wait...)
	if err != nil {
		return tk.Fail("challenge.menu", opts.MenuSelector, err)
	}
	defer dom.Release(ctx, menu)
	if err := tk.Click(ctx, "challenge.menu", opts.MenuSelector, menu); err != nil {
		return err
	}

	itemTarget := opts.ItemSelector + "~" + opts.ItemLabel.String()
	item, err := locate.Match(ctx, doc, opts.ItemSelector, innerTextMatches(opts.ItemLabel), wait...)
	if err != nil {
		return tk.Fail("challenge.item", itemTarget, err)
	}
	defer dom.Release(ctx, item)
	if err := tk.Click(ctx, "challenge.item", itemTarget, item); err != nil {
		return err
	}

	input, err := locate.Element(ctx, doc, opts.InputSelector, wait...)
	if err != nil {
		return tk.Fail("challenge.input", opts.InputSelector, err)
	}
	dom.Release(ctx, input)
	tk.Record("challenge.input", opts.InputSelector, actions.Performed, nil)

	if opts.SkipLanguage {
		return nil
	}
	return switchLanguage(ctx, tk, opts)
}

func switchLanguage(ctx context.Context, tk *actions.Toolkit, opts Options) error {
	const op = "challenge.language"
	doc := tk.Document()

	selector, err := doc.Query(ctx, opts.LanguageSelector)
	if err != nil {
		return tk.Fail(op, opts.LanguageSelector, err)
	}
	defer dom.Release(ctx, selector)
	if selector == nil {
		// The widget does not always offer a language choice.
		tk.Record(op, opts.LanguageSelector, actions.Skipped, nil)
		return nil
	}
	if err := tk.Click(ctx, op, opts.LanguageSelector, selector); err != nil {
		return err
	}

	target := opts.OptionSelector + "~" + opts.Language
	var option dom.Node
	if opts.LanguageTimeout > 0 {
		option, err = locate.MatchWithin(ctx, doc, opts.OptionSelector, innerTextContains(opts.Language), opts.LanguageTimeout, tk.WaitOptions()...)
		if errors.Is(err, poll.ErrTimeout) {
			return tk.NotFound(op, target)
		}
	} else {
		option, err = locate.Match(ctx, doc, opts.OptionSelector, innerTextContains(opts.Language), tk.WaitOptions()...)
	}
	if err != nil {
		return tk.Fail(op, target, err)
	}
	defer dom.Release(ctx, option)
	return tk.Click(ctx, op, target, option)
}

// Submit types answer into the challenge input and clicks the submit button
// when there is one.
func Submit(ctx context.Context, tk *actions.Toolkit, answer string, opts Options) error {
	const op = "challenge.answer"
	opts = opts.withDefaults()
	doc := tk.Document()

	input, err := doc.Query(ctx, opts.InputSelector)
	if err != nil {
		return tk.Fail(op, opts.InputSelector, err)
	}
	defer dom.Release(ctx, input)
	if input == nil {
		return tk.NotFound(op, opts.InputSelector)
	}
	if err := input.SetValue(ctx, answer); err != nil {
		return tk.Fail(op, opts.InputSelector, err)
	}
	if err := input.Dispatch(ctx, "input"); err != nil {
		return tk.Fail(op, opts.InputSelector, err)
	}
	tk.Record(op, opts.InputSelector, actions.Performed, nil)

	submit, err := doc.Query(ctx, opts.SubmitSelector)
	if err != nil {
		return tk.Fail("challenge.submit", opts.SubmitSelector, err)
	}
	defer dom.Release(ctx, submit)
	if submit == nil {
		tk.Record("challenge.submit", opts.SubmitSelector, actions.Absent, nil)
		return nil
	}
	return tk.Click(ctx, "challenge.submit", opts.SubmitSelector, submit)
}

// String describes the flow's targets, for logs.
func (o Options) String() string {
	o = o.withDefaults()
	lang := o.Language
	if o.SkipLanguage {
		lang = "-"
	}
	return fmt.Sprintf("menu=%s item=%s~%s input=%s language=%s", o.MenuSelector, o.ItemSelector, o.ItemLabel, o.InputSelector, lang)
}
