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

// Package memdom is an in-memory dom.Document built from HTML source.
//
// It has no script engine. Clicks toggle native checkboxes and elements
// carrying aria-checked, and OnClick hooks stand in for page scripts. Every
// click, value assignment and dispatched event is recorded so tests can
// check what an operation did, and handles are counted until released.
package memdom

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/ttbt-io/pagepilot/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Action is one recorded interaction.
type Action struct {
	Kind   string // "click", "value" or "event"
	Target string // short description of the element
	Detail string // value or event type
}

func (a Action) String() string {
	if a.Detail == "" {
		return a.Kind + " " + a.Target
	}
	return a.Kind + " " + a.Target + " " + a.Detail
}

type hook struct {
	sel cascadia.Selector
	fn  func(d *Document)
}

// Document is an in-memory page. It is safe for concurrent use.
type Document struct {
	mu      sync.Mutex
	root    *html.Node
	storage map[string]string
	actions []Action
	hooks   []hook
	live    int
}

var _ dom.Document = (*Document)(nil)

// Parse builds a Document from an HTML page.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("html.Parse: %w", err)
	}
	return &Document{
		root:    root,
		storage: make(map[string]string),
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

func compile(sel string) (cascadia.Selector, error) {
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("memdom: selector %q: %w", sel, err)
	}
	return s, nil
}

func (d *Document) Query(ctx context.Context, sel string) (dom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := compile(sel)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := s.MatchFirst(d.root)
	if n == nil {
		return nil, nil
	}
	d.live++
	return &Node{doc: d, n: n}, nil
}

func (d *Document) QueryAll(ctx context.Context, sel string) ([]dom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := compile(sel)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	matches := s.MatchAll(d.root)
	nodes := make([]dom.Node, 0, len(matches))
	for _, n := range matches {
		nodes = append(nodes, &Node{doc: d, n: n})
	}
	d.live += len(nodes)
	return nodes, nil
}

func (d *Document) StorageItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.storage[key]
	return v, ok, nil
}

// SetStorage writes a local storage item.
func (d *Document) SetStorage(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.storage[key] = value
}

// DeleteStorage removes a local storage item.
func (d *Document) DeleteStorage(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.storage, key)
}

// OnClick registers fn to run after any element matching sel is clicked.
func (d *Document) OnClick(sel string, fn func(d *Document)) error {
	s, err := compile(sel)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, hook{sel: s, fn: fn})
	return nil
}

// Append parses fragment and appends it to the first element matching
// parentSel.
func (d *Document) Append(parentSel, fragment string) error {
	s, err := compile(parentSel)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	parent := s.MatchFirst(d.root)
	if parent == nil {
		return fmt.Errorf("memdom: append to %q: %w", parentSel, dom.ErrNotFound)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return fmt.Errorf("html.ParseFragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Remove detaches every element matching sel.
func (d *Document) Remove(sel string) error {
	s, err := compile(sel)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range s.MatchAll(d.root) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return nil
}

// Value returns the value attribute of the first element matching sel.
func (d *Document) Value(sel string) string {
	s, err := compile(sel)
	if err != nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := s.MatchFirst(d.root)
	if n == nil {
		return ""
	}
	v, _ := attr(n, "value")
	return v
}

// Actions returns a copy of everything recorded so far.
func (d *Document) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Action, len(d.actions))
	copy(out, d.actions)
	return out
}

// Clicks returns the descriptions of clicked elements, in order.
func (d *Document) Clicks() []string {
	var out []string
	for _, a := range d.Actions() {
		if a.Kind == "click" {
			out = append(out, a.Target)
		}
	}
	return out
}

// ResetActions forgets everything recorded so far.
func (d *Document) ResetActions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = nil
}

// LiveHandles returns how many nodes handed out by Query and QueryAll have
// not been released yet.
func (d *Document) LiveHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Node is an element of a Document.
type Node struct {
	doc      *Document
	n        *html.Node
	released bool
}

var (
	_ dom.Node     = (*Node)(nil)
	_ dom.Releaser = (*Node)(nil)
)

// Release marks the handle as released. Releasing twice is a no-op.
func (n *Node) Release(ctx context.Context) error {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	if !n.released {
		n.released = true
		n.doc.live--
	}
	return nil
}

func (n *Node) record(kind, detail string) {
	n.doc.actions = append(n.doc.actions, Action{Kind: kind, Target: describe(n.n), Detail: detail})
}

func (n *Node) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.doc.mu.Lock()
	n.record("click", "")
	if isCheckbox(n.n) {
		if _, ok := attr(n.n, "checked"); ok {
			removeAttr(n.n, "checked")
		} else {
			setAttr(n.n, "checked", "")
		}
	}
	switch v, _ := attr(n.n, "aria-checked"); v {
	case "true":
		setAttr(n.n, "aria-checked", "false")
	case "false":
		setAttr(n.n, "aria-checked", "true")
	}
	var fns []func(*Document)
	for _, h := range n.doc.hooks {
		if h.sel.Match(n.n) {
			fns = append(fns, h.fn)
		}
	}
	n.doc.mu.Unlock()

	for _, fn := range fns {
		fn(n.doc)
	}
	return nil
}

func (n *Node) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	setAttr(n.n, "value", value)
	n.record("value", value)
	return nil
}

func (n *Node) Dispatch(ctx context.Context, events ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	for _, e := range events {
		n.record("event", e)
	}
	return nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	v, ok := attr(n.n, name)
	return v, ok, nil
}

func (n *Node) Checked(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	_, ok := attr(n.n, "checked")
	return ok, nil
}

func (n *Node) TextContent(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	var b strings.Builder
	collectText(&b, n.n, false)
	return b.String(), nil
}

// InnerText is TextContent without script, style and hidden subtrees.
func (n *Node) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	var b strings.Builder
	collectText(&b, n.n, true)
	return strings.TrimSpace(b.String()), nil
}

func collectText(b *strings.Builder, n *html.Node, rendered bool) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if rendered && n.Type == html.ElementNode {
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
		if _, hidden := attr(n, "hidden"); hidden {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, rendered)
	}
}

func isCheckbox(n *html.Node) bool {
	if n.DataAtom != atom.Input {
		return false
	}
	t, _ := attr(n, "type")
	return strings.EqualFold(t, "checkbox")
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}

// describe renders an element as tag#id, or tag("text") when it has no id.
func describe(n *html.Node) string {
	if id, ok := attr(n, "id"); ok && id != "" {
		return n.Data + "#" + id
	}
	if name, ok := attr(n, "name"); ok && name != "" {
		return n.Data + "[name=" + name + "]"
	}
	var b strings.Builder
	collectText(&b, n, true)
	if text := strings.TrimSpace(b.String()); text != "" {
		return fmt.Sprintf("%s(%q)", n.Data, text)
	}
	return n.Data
}
