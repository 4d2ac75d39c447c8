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

// screenshots walks the fixture pages with pagepilot and saves a screenshot
// after every step, for the README and for eyeballing driver changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/pagepilot/actions"
	"github.com/ttbt-io/pagepilot/dom/cdpdom"
	"github.com/ttbt-io/pagepilot/pilot"
	"github.com/ttbt-io/pagepilot/poll"
	"github.com/ttbt-io/pagepilot/tools/e2ehelpers"
	"github.com/ttbt-io/pagepilot/tools/fixture"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port")
	outputDir = flag.String("output-dir", "/screenshots", "Directory to save screenshots")
	host      = flag.String("host", "localhost", "Host name the browser uses to reach this process")
)

func main() {
	flag.Parse()

	if *chromeURL == "" {
		log.Fatal("--chrome-url must be set")
	}

	srv, err := fixture.Start(fixture.Options{Host: *host, TLS: true})
	if err != nil {
		log.Fatalf("Failed to start fixture server: %v", err)
	}
	defer srv.Close()
	log.Printf("Server started at %s", srv.URL)

	ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), *chromeURL)
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx, chromedp.WithLogf(log.Printf))
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 180*time.Second) // very generous timeout
	defer cancel()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	log.Println("Starting screenshot generation...")

	session := pilot.New(cdpdom.New(), pilot.Options{
		Actions: actions.Options{
			Mode:   actions.Strict,
			Logger: poll.LogFunc(log.Printf),
		},
	})
	if err := captureSignup(ctx, session, srv.URL); err != nil {
		log.Fatalf("Failed to capture sign-up flow: %v", err)
	}
	if err := captureChallenge(ctx, session, srv.URL); err != nil {
		log.Fatalf("Failed to capture challenge flow: %v", err)
	}

	log.Println("Screenshots generated successfully.")
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps runs each step with a timeout and saves <name>.png after it, or
// debug artifacts when it fails.
func runSteps(ctx context.Context, steps []step) error {
	for _, s := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		err := s.run(stepCtx)
		cancel()
		if err != nil {
			log.Printf("Step '%s' failed: %v", s.name, err)
			e2ehelpers.SaveDebugArtifacts(ctx, *outputDir, "debug-"+s.name)
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, s.name+".png")); err != nil {
			return err
		}
	}
	return nil
}

func navigate(url string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body"),
			e2ehelpers.DisableCSSAnimations(),
		)
	}
}

func captureSignup(ctx context.Context, s *pilot.Session, baseURL string) error {
	return runSteps(ctx, []step{
		{"signup-01-open", navigate(baseURL + fixture.SignupPage)},
		{"signup-02-email", func(ctx context.Context) error {
			return s.SetFieldValue(ctx, `input[name="email"]`, "someone@example.com")
		}},
		{"signup-03-terms", func(ctx context.Context) error {
			return s.ClickCheckboxIfUnchecked(ctx, "#terms")
		}},
		{"signup-04-checkboxes", func(ctx context.Context) error {
			_, err := s.ClickAllUncheckedCheckboxes(ctx)
			return err
		}},
		{"signup-05-colour", func(ctx context.Context) error {
			return s.SelectDropdownOption(ctx, "Favourite colour", "Green")
		}},
		{"signup-06-next", func(ctx context.Context) error {
			if err := s.ClickElement(ctx, "#next"); err != nil {
				return err
			}
			_, ok, err := s.ExtractStoredToken(ctx, 5*time.Second)
			if err == nil && !ok {
				err = fmt.Errorf("no token stored")
			}
			return err
		}},
	})
}

func captureChallenge(ctx context.Context, s *pilot.Session, baseURL string) error {
	return runSteps(ctx, []step{
		{"challenge-01-open", navigate(baseURL + fixture.ChallengePage)},
		{"challenge-02-flow", s.RunAccessibilityChallengeFlow},
		{"challenge-03-answer", func(ctx context.Context) error {
			return s.SubmitAccessibilityAnswer(ctx, "example")
		}},
	})
}
