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
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/pagepilot/actions"
	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/journal"
	"github.com/ttbt-io/pagepilot/pilot"
	"github.com/ttbt-io/pagepilot/tools/e2ehelpers"
)

var DisableCSSAnimations = e2ehelpers.DisableCSSAnimations
var WaitAnyVisible = e2ehelpers.WaitAnyVisible
var WaitUntilGone = e2ehelpers.WaitUntilGone
var CaptureScreenshot = e2ehelpers.CaptureScreenshot
var SaveDebugArtifacts = e2ehelpers.SaveDebugArtifacts

// PageLog reads the events the fixture page scripts logged.
func PageLog(log *[]string) chromedp.Action {
	return chromedp.Evaluate(`window.pageLog || []`, log)
}

// newSession returns a strict session on doc that journals into j.
func newSession(t *testing.T, doc dom.Document, j *journal.Journal) *pilot.Session {
	return pilot.New(doc, pilot.Options{
		Actions: actions.Options{
			Mode:     actions.Strict,
			Interval: 50 * time.Millisecond,
			Logger:   t,
			Recorder: j,
		},
	})
}

// openPage navigates to url and waits for the fixture scripts to run.
func openPage(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	var match string
	runStep(t, ctx, "open "+url,
		chromedp.Navigate(url),
		WaitAnyVisible("body", &match, 10*time.Second),
		DisableCSSAnimations(),
	)
}
