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

// Package cdpdom implements dom.Document over the Chrome DevTools Protocol
// with chromedp.
//
// The ctx passed to every method must carry a chromedp target, i.e. derive
// from chromedp.NewContext. Queries never wait: they evaluate
// querySelector(All) once and hand back remote object handles, and node
// operations call functions on those handles. Handles stay alive in the
// browser until dom.Release frees them.
package cdpdom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/pagepilot/dom"
)

const (
	jsClick       = `function() { this.click(); }`
	jsSetValue    = `function(v) { this.value = v; }`
	jsDispatch    = `function(types) { for (const t of types) { this.dispatchEvent(new Event(t, { bubbles: true })); } }`
	jsAttribute   = `function(name) { return this.hasAttribute(name) ? this.getAttribute(name) : null; }`
	jsChecked     = `function() { return !!this.checked; }`
	jsTextContent = `function() { return this.textContent || ''; }`
	jsInnerText   = `function() { return this.innerText || ''; }`
	jsLength      = `function() { return this.length; }`
	jsIndex       = `function(i) { return this[i]; }`
)

// Document is a chromedp-backed page.
type Document struct{}

var _ dom.Document = (*Document)(nil)

// New returns a Document for the chromedp target carried by each call's ctx.
func New() *Document {
	return &Document{}
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

func (d *Document) Query(ctx context.Context, sel string) (dom.Node, error) {
	var obj *runtime.RemoteObject
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%s)`, jsString(sel)), &obj)); err != nil {
		return nil, fmt.Errorf("cdpdom: query %q: %w", sel, err)
	}
	if obj == nil || obj.ObjectID == "" {
		return nil, nil
	}
	return &Node{id: obj.ObjectID}, nil
}

func (d *Document) QueryAll(ctx context.Context, sel string) ([]dom.Node, error) {
	var list *runtime.RemoteObject
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, jsString(sel)), &list)); err != nil {
		return nil, fmt.Errorf("cdpdom: query all %q: %w", sel, err)
	}
	if list == nil || list.ObjectID == "" {
		return nil, nil
	}
	defer chromedp.Run(ctx, runtime.ReleaseObject(list.ObjectID))

	var n int
	if err := chromedp.Run(ctx, chromedp.CallFunctionOn(jsLength, &n, onObject(list.ObjectID))); err != nil {
		return nil, fmt.Errorf("cdpdom: query all %q: length: %w", sel, err)
	}
	nodes := make([]dom.Node, 0, n)
	for i := 0; i < n; i++ {
		var el *runtime.RemoteObject
		if err := chromedp.Run(ctx, chromedp.CallFunctionOn(jsIndex, &el, onObject(list.ObjectID), i)); err != nil {
			dom.Release(ctx, nodes...)
			return nil, fmt.Errorf("cdpdom: query all %q: item %d: %w", sel, i, err)
		}
		if el == nil || el.ObjectID == "" {
			continue
		}
		nodes = append(nodes, &Node{id: el.ObjectID})
	}
	return nodes, nil
}

func (d *Document) StorageItem(ctx context.Context, key string) (string, bool, error) {
	var v *string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.localStorage.getItem(%s)`, jsString(key)), &v)); err != nil {
		return "", false, fmt.Errorf("cdpdom: localStorage %q: %w", key, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Node is a remote object handle for one element. The browser keeps the
// element reachable until the handle is released or the page navigates.
type Node struct {
	id runtime.RemoteObjectID
}

var (
	_ dom.Node     = (*Node)(nil)
	_ dom.Releaser = (*Node)(nil)
)

// Release frees the remote object.
func (n *Node) Release(ctx context.Context) error {
	if err := chromedp.Run(ctx, runtime.ReleaseObject(n.id)); err != nil {
		return fmt.Errorf("cdpdom: release: %w", err)
	}
	return nil
}

func (n *Node) call(ctx context.Context, fn string, res any, args ...any) error {
	return chromedp.Run(ctx, chromedp.CallFunctionOn(fn, res, onObject(n.id), args...))
}

func (n *Node) Click(ctx context.Context) error {
	if err := n.call(ctx, jsClick, nil); err != nil {
		return fmt.Errorf("cdpdom: click: %w", err)
	}
	return nil
}

func (n *Node) SetValue(ctx context.Context, value string) error {
	if err := n.call(ctx, jsSetValue, nil, value); err != nil {
		return fmt.Errorf("cdpdom: set value: %w", err)
	}
	return nil
}

func (n *Node) Dispatch(ctx context.Context, events ...string) error {
	if err := n.call(ctx, jsDispatch, nil, events); err != nil {
		return fmt.Errorf("cdpdom: dispatch %v: %w", events, err)
	}
	return nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	var v *string
	if err := n.call(ctx, jsAttribute, &v, name); err != nil {
		return "", false, fmt.Errorf("cdpdom: attribute %q: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n *Node) Checked(ctx context.Context) (bool, error) {
	var v bool
	if err := n.call(ctx, jsChecked, &v); err != nil {
		return false, fmt.Errorf("cdpdom: checked: %w", err)
	}
	return v, nil
}

func (n *Node) TextContent(ctx context.Context) (string, error) {
	var v string
	if err := n.call(ctx, jsTextContent, &v); err != nil {
		return "", fmt.Errorf("cdpdom: textContent: %w", err)
	}
	return v, nil
}

func (n *Node) InnerText(ctx context.Context) (string, error) {
	var v string
	if err := n.call(ctx, jsInnerText, &v); err != nil {
		return "", fmt.Errorf("cdpdom: innerText: %w", err)
	}
	return v, nil
}
