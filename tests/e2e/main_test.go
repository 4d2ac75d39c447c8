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
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/pagepilot/tools/fixture"
)

var (
	withChromeDP = flag.String("with-chromedp", "", "The url of the remote debugging port")
	withRod      = flag.String("with-rod", "", "The url of the remote debugging port to drive with go-rod")
	fixtureHost  = flag.String("fixture-host", "localhost", "Host name the browser uses to reach the test server")
	fixtureTLS   = flag.Bool("fixture-tls", false, "Serve the fixture pages over https with a self-signed certificate")
)

func TestMain(m *testing.M) {
	flag.Parse()
	exitCode := m.Run()
	os.Exit(exitCode)
}

func startTestServer(t *testing.T) string {
	t.Helper()
	srv, err := fixture.Start(fixture.Options{Host: *fixtureHost, TLS: *fixtureTLS})
	if err != nil {
		t.Fatalf("Failed to start fixture server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	if err := waitForServer(srv.URL+"/healthz", 5*time.Second); err != nil {
		t.Fatalf("Server failed to start: %v", err)
	}
	return srv.URL
}

// newBrowser returns a chromedp context for a fresh tab on the remote
// browser, or skips the test when --with-chromedp is not set.
func newBrowser(t *testing.T) context.Context {
	t.Helper()
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	ctx, cancel := chromedp.NewRemoteAllocator(t.Context(), *withChromeDP)
	t.Cleanup(cancel)
	ctx, cancel = chromedp.NewContext(ctx,
		chromedp.WithErrorf(log.Printf),
		chromedp.WithLogf(log.Printf),
	)
	t.Cleanup(cancel)
	if err := chromedp.Run(ctx); err != nil {
		t.Fatalf("Failed to attach to browser: %v", err)
	}
	ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitForServer(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	client := http.Client{Transport: tr}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	for start := time.Now(); time.Since(start) < timeout; {
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			log.Printf("Server at %s is ready!", url)
			return nil
		}
		log.Printf("waitForServer(%q): %v", url, err)
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return fmt.Errorf("timeout waiting for server at %s", url)
}

func runStep(t *testing.T, ctx context.Context, description string, actions ...chromedp.Action) {
	t.Helper()
	t.Logf("STEP: %s", description)
	for i, action := range actions {
		if err := chromedp.Run(ctx, action); err != nil {
			SaveDebugArtifacts(ctx, t.TempDir(), "failed-action")
			t.Fatalf("STEP FAILED: %s [Action#%d]: %v", description, i, err)
		}
	}
}
