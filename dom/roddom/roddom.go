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

// Package roddom implements dom.Document on a go-rod page.
package roddom

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ttbt-io/pagepilot/dom"
)

// Document wraps a rod page. Queries do not wait for elements to appear.
type Document struct {
	page *rod.Page
}

var _ dom.Document = (*Document)(nil)

// New returns a Document for page.
func New(page *rod.Page) *Document {
	return &Document{page: page}
}

func (d *Document) Query(ctx context.Context, sel string) (dom.Node, error) {
	has, el, err := d.page.Context(ctx).Has(sel)
	if err != nil {
		return nil, fmt.Errorf("roddom: query %q: %w", sel, err)
	}
	if !has {
		return nil, nil
	}
	return &Node{el: el}, nil
}

func (d *Document) QueryAll(ctx context.Context, sel string) ([]dom.Node, error) {
	els, err := d.page.Context(ctx).Elements(sel)
	if err != nil {
		return nil, fmt.Errorf("roddom: query all %q: %w", sel, err)
	}
	nodes := make([]dom.Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &Node{el: el})
	}
	return nodes, nil
}

func (d *Document) StorageItem(ctx context.Context, key string) (string, bool, error) {
	res, err := d.page.Context(ctx).Eval(`(k) => window.localStorage.getItem(k)`, key)
	if err != nil {
		return "", false, fmt.Errorf("roddom: localStorage %q: %w", key, err)
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

// Node wraps a rod element.
type Node struct {
	el *rod.Element
}

var (
	_ dom.Node     = (*Node)(nil)
	_ dom.Releaser = (*Node)(nil)
)

// Release frees the element's remote object.
func (n *Node) Release(ctx context.Context) error {
	if err := n.el.Context(ctx).Release(); err != nil {
		return fmt.Errorf("roddom: release: %w", err)
	}
	return nil
}

func (n *Node) Click(ctx context.Context) error {
	if _, err := n.el.Context(ctx).Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("roddom: click: %w", err)
	}
	return nil
}

func (n *Node) SetValue(ctx context.Context, value string) error {
	if _, err := n.el.Context(ctx).Eval(`(v) => { this.value = v }`, value); err != nil {
		return fmt.Errorf("roddom: set value: %w", err)
	}
	return nil
}

func (n *Node) Dispatch(ctx context.Context, events ...string) error {
	js := `(types) => { for (const t of types) { this.dispatchEvent(new Event(t, { bubbles: true })) } }`
	if _, err := n.el.Context(ctx).Eval(js, events); err != nil {
		return fmt.Errorf("roddom: dispatch %v: %w", events, err)
	}
	return nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := n.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("roddom: attribute %q: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n *Node) Checked(ctx context.Context) (bool, error) {
	res, err := n.el.Context(ctx).Eval(`() => !!this.checked`)
	if err != nil {
		return false, fmt.Errorf("roddom: checked: %w", err)
	}
	return res.Value.Bool(), nil
}

func (n *Node) TextContent(ctx context.Context) (string, error) {
	res, err := n.el.Context(ctx).Eval(`() => this.textContent || ''`)
	if err != nil {
		return "", fmt.Errorf("roddom: textContent: %w", err)
	}
	return res.Value.Str(), nil
}

func (n *Node) InnerText(ctx context.Context) (string, error) {
	res, err := n.el.Context(ctx).Eval(`() => this.innerText || ''`)
	if err != nil {
		return "", fmt.Errorf("roddom: innerText: %w", err)
	}
	return res.Value.Str(), nil
}
