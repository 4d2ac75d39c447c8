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

package e2e

import (
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/pagepilot/dom/cdpdom"
	"github.com/ttbt-io/pagepilot/journal"
	"github.com/ttbt-io/pagepilot/tools/fixture"
)

func TestChallengeChromedp(t *testing.T) {
	ctx := newBrowser(t)
	baseURL := startTestServer(t)
	openPage(t, ctx, baseURL+fixture.ChallengePage)

	j := journal.New("challenge")
	s := newSession(t, cdpdom.New(), j)
	if err := s.RunAccessibilityChallengeFlow(ctx); err != nil {
		SaveDebugArtifacts(ctx, t.TempDir(), "challenge")
		t.Fatalf("RunAccessibilityChallengeFlow: %v", err)
	}
	runStep(t, ctx, "menu closed", WaitUntilGone(`[role="menuitem"]`, 2*time.Second))
	if err := s.SubmitAccessibilityAnswer(ctx, "example"); err != nil {
		t.Fatalf("SubmitAccessibilityAnswer: %v", err)
	}

	var log []string
	runStep(t, ctx, "read page log", PageLog(&log))
	want := []string{
		"menu",
		"item:Accessibility Challenge",
		"language",
		"language:Nederlands (Dutch)",
		"answer:input",
		"submit:7",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected page log %q, got %q", want, log)
	}
	VerifyTrace(t, j, "challenge.txt")
}

func TestChallengeVariantsChromedp(t *testing.T) {
	ctx := newBrowser(t)
	baseURL := startTestServer(t)

	for _, tc := range []struct {
		name  string
		query url.Values
		want  []string
	}{
		{
			name:  "DutchLabel",
			query: url.Values{"label": {"Toegankelijkheidsuitdaging"}},
			want:  []string{"menu", "item:Toegankelijkheidsuitdaging", "language", "language:Nederlands (Dutch)"},
		},
		{
			name:  "NoLanguageSelector",
			query: url.Values{"nolanguage": {"1"}},
			want:  []string{"menu", "item:Accessibility Challenge"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			openPage(t, ctx, baseURL+fixture.ChallengePage+"?"+tc.query.Encode())
			s := newSession(t, cdpdom.New(), journal.New(tc.name))
			if err := s.RunAccessibilityChallengeFlow(ctx); err != nil {
				t.Fatalf("RunAccessibilityChallengeFlow: %v", err)
			}
			var log []string
			runStep(t, ctx, "read page log", chromedp.Sleep(200*time.Millisecond), PageLog(&log))
			if !reflect.DeepEqual(log, tc.want) {
				t.Errorf("Expected page log %q, got %q", tc.want, log)
			}
		})
	}
}
