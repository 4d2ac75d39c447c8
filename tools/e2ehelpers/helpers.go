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

// Package e2ehelpers has chromedp helpers for debugging page automation
// against a real browser.
package e2ehelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/pagepilot/poll"
)

// CaptureScreenshot captures a screenshot and saves it to the specified filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := writeFile(filename, buf); err != nil {
		return err
	}
	log.Printf("Saved screenshot to %s", filename)
	return nil
}

// DumpHTML saves the current document's outer HTML to filename.
func DumpHTML(ctx context.Context, filename string) error {
	var html string
	if err := chromedp.Run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return fmt.Errorf("failed to read document HTML: %w", err)
	}
	if err := writeFile(filename, []byte(html)); err != nil {
		return err
	}
	log.Printf("Saved HTML to %s", filename)
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SaveDebugArtifacts writes <dir>/<name>.png and <dir>/<name>.html. Errors
// are logged, not returned, because this runs on paths that already failed.
func SaveDebugArtifacts(ctx context.Context, dir, name string) {
	base := filepath.Join(dir, unsafeName.ReplaceAllString(name, "_"))
	if err := CaptureScreenshot(ctx, base+".png"); err != nil {
		log.Printf("SaveDebugArtifacts: %v", err)
	}
	if err := DumpHTML(ctx, base+".html"); err != nil {
		log.Printf("SaveDebugArtifacts: %v", err)
	}
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func writeFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func DisableCSSAnimations() chromedp.ActionFunc {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
                        const style = document.createElement('style');
                        style.innerHTML = '*{-webkit-transition-duration:0s!important;transition-duration:0s!important;-webkit-animation-duration:0s!important;animation-duration:0s!important;}';
                        document.head.appendChild(style);
                `, nil).Do(ctx)
	})
}

// WaitAnyVisible waits until one element matching sel is rendered and
// stores a short description of it in match.
func WaitAnyVisible(sel string, match *string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script := fmt.Sprintf(
			`(function(selectors) {
				const elements = document.querySelectorAll(selectors);
				for (let i = 0; i < elements.length; i++) {
					const el = elements[i];
					const style = window.getComputedStyle(el);
					if (el.offsetHeight !== 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0') {
						return el.tagName.toLowerCase() + (el.id ? '#' + el.id : '');
					}
				}
				return '';
			})(%s)`, jsString(sel))
		v, err := poll.Within(ctx, timeout, func(ctx context.Context) (string, bool, error) {
			var s string
			err := chromedp.Evaluate(script, &s).Do(ctx)
			return s, s != "", err
		}, poll.WithInterval(200*time.Millisecond), poll.WithErrorPolicy(poll.RetryErrors))
		if err != nil {
			return fmt.Errorf("timeout waiting for any element from list to become visible: %w", err)
		}
		*match = v
		return nil
	})
}

// WaitUntilGone waits until no element matches sel.
func WaitUntilGone(sel string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script := fmt.Sprintf(`document.querySelector(%s) === null`, jsString(sel))
		_, err := poll.Within(ctx, timeout, func(ctx context.Context) (bool, bool, error) {
			var gone bool
			err := chromedp.Evaluate(script, &gone).Do(ctx)
			return gone, gone, err
		}, poll.WithInterval(100*time.Millisecond))
		if err != nil {
			return fmt.Errorf("waiting for %s to go away: %w", sel, err)
		}
		return nil
	})
}
