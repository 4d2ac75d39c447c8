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
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttbt-io/pagepilot/actions"
	"github.com/ttbt-io/pagepilot/challenge"
	"github.com/ttbt-io/pagepilot/journal"
	"github.com/ttbt-io/pagepilot/pilot"
	"github.com/ttbt-io/pagepilot/poll"
	"github.com/ttbt-io/pagepilot/webstore"
)

var (
	chromeURL    = flag.String("chrome-url", "", "Remote debugging URL of a running browser. If empty, a headless browser is launched")
	driverName   = flag.String("driver", "chromedp", "Browser driver: chromedp or rod")
	pageURL      = flag.String("url", "", "Page to open before running the operation")
	opName       = flag.String("op", "", "Operation: set, check, click, select, check-all, challenge, answer, token")
	strictMode   = flag.Bool("strict", false, "Fail when a target element is absent instead of doing nothing")
	retryErrors  = flag.Bool("retry-errors", false, "Keep polling when the browser returns an error while waiting")
	interval     = flag.Duration("interval", poll.DefaultInterval, "Polling interval while waiting for elements")
	timeout      = flag.Duration("timeout", time.Minute, "Overall timeout for the operation")
	tokenKey     = flag.String("token-key", webstore.DefaultKey, "Local storage key read by the token operation")
	tokenTimeout = flag.Duration("token-timeout", webstore.DefaultTimeout, "How long the token operation waits for the key")
	language     = flag.String("language", challenge.DefaultLanguage, "Language picked in the challenge widget")
	skipLanguage = flag.Bool("skip-language", false, "Leave the challenge widget language unchanged")
	journalDir   = flag.String("journal-dir", "", "Directory where the run journal is saved. Set PP_MASTER_KEY to encrypt it")
	debugDir     = flag.String("debug-dir", "", "Directory for a screenshot and HTML dump when the operation fails (chromedp only)")
	printToken   = flag.Bool("print-token", false, "Print the token value instead of only its length")
	verbose      = flag.Bool("v", false, "Log every polling step")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [flags] -op <operation> [args]

Operations and their arguments:
  set <selector> <value>     set a field value and fire input/change
  check <selector>           click an aria checkbox if aria-checked="false"
  click <selector>           click an element
  select <label> <value>     pick an option of a custom dropdown
  check-all                  click every unchecked native checkbox
  challenge                  open the accessibility challenge
  answer <text>              type and submit a challenge answer
  token                      read the token from local storage

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

// main runs one operation against a browser page.
func main() {
	flag.Usage = usage
	flag.Parse()

	if err := checkArgs(*opName, flag.Args()); err != nil {
		log.Printf("%v", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drv, err := openDriver(ctx, *driverName, *chromeURL)
	if err != nil {
		log.Fatalf("Failed to open browser: %v", err)
	}
	defer drv.Close()

	if *pageURL != "" {
		if err := drv.Navigate(*pageURL); err != nil {
			log.Fatalf("Failed to open %s: %v", *pageURL, err)
		}
	}

	j := journal.New(*opName)
	opts := pilot.Options{
		Actions: actions.Options{
			Interval: *interval,
			Recorder: j,
		},
		Challenge: challenge.Options{
			Language:     *language,
			SkipLanguage: *skipLanguage,
		},
		Token: webstore.Options{
			Key:     *tokenKey,
			Timeout: *tokenTimeout,
		},
	}
	if *strictMode {
		opts.Actions.Mode = actions.Strict
	}
	if *retryErrors {
		opts.Actions.ErrorPolicy = poll.RetryErrors
		opts.Token.ErrorPolicy = poll.RetryErrors
	}
	if *verbose {
		opts.Actions.Logger = poll.LogFunc(log.Printf)
	}
	session := pilot.New(drv.Document(), opts)

	opCtx, cancel := context.WithTimeout(drv.Context(), *timeout)
	defer cancel()

	runErr := runOp(opCtx, session, *opName, flag.Args())
	if runErr != nil && *debugDir != "" {
		drv.SaveDebugArtifacts(*debugDir, j.ID())
	}
	if *journalDir != "" {
		if err := saveJournal(*journalDir, j); err != nil {
			log.Printf("Failed to save journal: %v", err)
		} else {
			log.Printf("Saved journal %s", j.ID())
		}
	}
	if runErr != nil {
		drv.Close()
		log.Fatalf("%s: %v", *opName, runErr)
	}
}

func checkArgs(op string, args []string) error {
	want := map[string]int{
		"set":       2,
		"check":     1,
		"click":     1,
		"select":    2,
		"check-all": 0,
		"challenge": 0,
		"answer":    1,
		"token":     0,
	}
	n, ok := want[op]
	if !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	if len(args) != n {
		return fmt.Errorf("%s takes %d argument(s), got %d", op, n, len(args))
	}
	return nil
}

func runOp(ctx context.Context, s pilot.Operations, op string, args []string) error {
	switch op {
	case "set":
		return s.SetFieldValue(ctx, args[0], args[1])
	case "check":
		return s.ClickCheckboxIfUnchecked(ctx, args[0])
	case "click":
		return s.ClickElement(ctx, args[0])
	case "select":
		return s.SelectDropdownOption(ctx, args[0], args[1])
	case "check-all":
		n, err := s.ClickAllUncheckedCheckboxes(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("clicked %d checkbox(es)\n", n)
		return nil
	case "challenge":
		return s.RunAccessibilityChallengeFlow(ctx)
	case "answer":
		return s.SubmitAccessibilityAnswer(ctx, args[0])
	case "token":
		v, ok, err := s.ExtractStoredToken(ctx, 0)
		if err != nil {
			return err
		}
		switch {
		case !ok:
			fmt.Println("token: not found")
		case *printToken:
			fmt.Println(v)
		default:
			fmt.Printf("token: found, %d bytes\n", len(v))
		}
		return nil
	}
	return errors.New("unknown operation " + op)
}

func saveJournal(dir string, j *journal.Journal) error {
	s, err := journal.OpenStorage(dir, os.Getenv("PP_MASTER_KEY"))
	if err != nil {
		return err
	}
	return journal.NewStore(dir, s).Save(j)
}
