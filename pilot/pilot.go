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

// Package pilot bundles the form primitives, the challenge flow and token
// extraction behind a single Session.
package pilot

import (
	"context"
	"time"

	"github.com/ttbt-io/pagepilot/actions"
	"github.com/ttbt-io/pagepilot/challenge"
	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/webstore"
)

// Operations is the full operation set of a Session.
type Operations interface {
	SetFieldValue(ctx context.Context, sel, value string) error
	ClickCheckboxIfUnchecked(ctx context.Context, sel string) error
	ClickElement(ctx context.Context, sel string) error
	SelectDropdownOption(ctx context.Context, label, value string) error
	ClickAllUncheckedCheckboxes(ctx context.Context) (int, error)
	RunAccessibilityChallengeFlow(ctx context.Context) error
	SubmitAccessibilityAnswer(ctx context.Context, answer string) error
	ExtractStoredToken(ctx context.Context, timeout time.Duration) (string, bool, error)
}

// Options configures a Session.
type Options struct {
	Actions   actions.Options
	Challenge challenge.Options
	// Token configures ExtractStoredToken. A nil Logger defaults to the
	// Actions one. ErrorPolicy is used as given and is not inherited.
	Token webstore.Options
}

// Session runs operations against one document. Its methods are exactly
// those of Operations.
type Session struct {
	tk        *actions.Toolkit
	challenge challenge.Options
	token     webstore.Options
}

var _ Operations = (*Session)(nil)

// New returns a Session operating on doc.
func New(doc dom.Document, opts Options) *Session {
	if opts.Token.Logger == nil {
		opts.Token.Logger = opts.Actions.Logger
	}
	return &Session{
		tk:        actions.New(doc, opts.Actions),
		challenge: opts.Challenge,
		token:     opts.Token,
	}
}

func (s *Session) SetFieldValue(ctx context.Context, sel, value string) error {
	return s.tk.SetFieldValue(ctx, sel, value)
}

func (s *Session) ClickCheckboxIfUnchecked(ctx context.Context, sel string) error {
	return s.tk.ClickCheckboxIfUnchecked(ctx, sel)
}

func (s *Session) ClickElement(ctx context.Context, sel string) error {
	return s.tk.ClickElement(ctx, sel)
}

func (s *Session) SelectDropdownOption(ctx context.Context, label, value string) error {
	return s.tk.SelectDropdownOption(ctx, label, value)
}

func (s *Session) ClickAllUncheckedCheckboxes(ctx context.Context) (int, error) {
	return s.tk.ClickAllUncheckedCheckboxes(ctx)
}

// RunAccessibilityChallengeFlow opens the accessibility challenge of the
// widget on the page.
func (s *Session) RunAccessibilityChallengeFlow(ctx context.Context) error {
	return challenge.Run(ctx, s.tk, s.challenge)
}

// SubmitAccessibilityAnswer types the caller's answer and submits it.
func (s *Session) SubmitAccessibilityAnswer(ctx context.Context, answer string) error {
	return challenge.Submit(ctx, s.tk, answer, s.challenge)
}

// ExtractStoredToken waits up to timeout for the token in local storage.
// A timeout <= 0 uses the configured one. The boolean is false when no
// token appeared in time.
func (s *Session) ExtractStoredToken(ctx context.Context, timeout time.Duration) (string, bool, error) {
	const op = "token"
	opts := s.token
	if timeout > 0 {
		opts.Timeout = timeout
	}
	key := opts.Key
	if key == "" {
		key = webstore.DefaultKey
	}
	v, ok, err := webstore.ExtractToken(ctx, s.tk.Document(), opts)
	if err != nil {
		return "", false, s.tk.Fail(op, key, err)
	}
	if !ok {
		s.tk.Record(op, key, actions.Absent, nil)
		return "", false, nil
	}
	s.tk.Record(op, key, actions.Performed, nil)
	return v, true, nil
}
