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

package main

import (
	"errors"
	"testing"
	"time"

	"github.com/ttbt-io/pagepilot/actions"
	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/dom/memdom"
	"github.com/ttbt-io/pagepilot/journal"
	"github.com/ttbt-io/pagepilot/pilot"
)

func TestCheckArgs(t *testing.T) {
	for _, tc := range []struct {
		op   string
		args []string
		ok   bool
	}{
		{"set", []string{"#a", "v"}, true},
		{"set", []string{"#a"}, false},
		{"check", []string{"#a"}, true},
		{"click", nil, false},
		{"select", []string{"Colour", "Green"}, true},
		{"check-all", nil, true},
		{"challenge", nil, true},
		{"answer", []string{"x"}, true},
		{"token", nil, true},
		{"token", []string{"extra"}, false},
		{"register", nil, false},
		{"", nil, false},
	} {
		err := checkArgs(tc.op, tc.args)
		if (err == nil) != tc.ok {
			t.Errorf("checkArgs(%q, %q) = %v, want ok=%v", tc.op, tc.args, err, tc.ok)
		}
	}
}

func TestRunOp(t *testing.T) {
	d := memdom.MustParse(`<html><body>
	  <input name="q">
	  <input type="checkbox" id="a">
	  <button id="go">Go</button>
	</body></html>`)
	d.SetStorage("token", `"tok"`)
	j := journal.New("cli")
	s := pilot.New(d, pilot.Options{Actions: actions.Options{
		Mode:     actions.Strict,
		Interval: 5 * time.Millisecond,
		Recorder: j,
	}})
	ctx := t.Context()

	if err := runOp(ctx, s, "set", []string{`input[name="q"]`, "hello"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := d.Value(`input[name="q"]`); got != "hello" {
		t.Errorf("Expected hello, got %q", got)
	}
	if err := runOp(ctx, s, "check-all", nil); err != nil {
		t.Fatalf("check-all: %v", err)
	}
	if err := runOp(ctx, s, "click", []string{"#go"}); err != nil {
		t.Fatalf("click: %v", err)
	}
	if err := runOp(ctx, s, "token", nil); err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := runOp(ctx, s, "click", []string{"#nope"}); !errors.Is(err, dom.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if got := len(j.Snapshot().Entries); got != 5 {
		t.Errorf("Expected 5 journal entries, got %d", got)
	}
}
