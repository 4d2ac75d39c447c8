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
	"fmt"
	"log"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/dom/cdpdom"
	"github.com/ttbt-io/pagepilot/dom/roddom"
	"github.com/ttbt-io/pagepilot/tools/e2ehelpers"
)

// driver is one open browser page.
type driver interface {
	Document() dom.Document
	// Context is the context operations on Document must run with.
	Context() context.Context
	Navigate(url string) error
	SaveDebugArtifacts(dir, name string)
	Close()
}

func openDriver(ctx context.Context, name, controlURL string) (driver, error) {
	switch name {
	case "chromedp":
		d, err := openChromedp(ctx, controlURL)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "rod":
		d, err := openRod(ctx, controlURL)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown driver %q", name)
}

type chromedpDriver struct {
	ctx    context.Context
	cancel func()
	once   sync.Once
}

func openChromedp(ctx context.Context, controlURL string) (*chromedpDriver, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if controlURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, controlURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	d := &chromedpDriver{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}
	// Start the browser with the long-lived context.
	if err := chromedp.Run(tabCtx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *chromedpDriver) Document() dom.Document   { return cdpdom.New() }
func (d *chromedpDriver) Context() context.Context { return d.ctx }

func (d *chromedpDriver) Navigate(url string) error {
	return chromedp.Run(d.ctx, chromedp.Navigate(url))
}

func (d *chromedpDriver) SaveDebugArtifacts(dir, name string) {
	e2ehelpers.SaveDebugArtifacts(d.ctx, dir, name)
}

func (d *chromedpDriver) Close() {
	d.once.Do(d.cancel)
}

type rodDriver struct {
	ctx      context.Context
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	once     sync.Once
}

func openRod(ctx context.Context, controlURL string) (*rodDriver, error) {
	d := &rodDriver{ctx: ctx}
	var err error
	if controlURL != "" {
		u, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", controlURL, err)
		}
		controlURL = u
	} else {
		d.launcher = launcher.New().Headless(true)
		if controlURL, err = d.launcher.Launch(); err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	d.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := d.browser.Connect(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	if d.page, err = d.browser.Page(proto.TargetCreateTarget{}); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return d, nil
}

func (d *rodDriver) Document() dom.Document   { return roddom.New(d.page) }
func (d *rodDriver) Context() context.Context { return d.ctx }

func (d *rodDriver) Navigate(url string) error {
	if err := d.page.Navigate(url); err != nil {
		return err
	}
	return d.page.WaitLoad()
}

func (d *rodDriver) SaveDebugArtifacts(dir, name string) {
	log.Printf("-debug-dir is only supported with -driver=chromedp")
}

func (d *rodDriver) Close() {
	d.once.Do(func() {
		if d.launcher == nil {
			// Leave a browser we did not launch running.
			if d.page != nil {
				if err := d.page.Close(); err != nil {
					log.Printf("Closing page: %v", err)
				}
			}
			return
		}
		if d.browser != nil {
			if err := d.browser.Close(); err != nil {
				log.Printf("Closing browser: %v", err)
			}
		}
		d.launcher.Cleanup()
	})
}
