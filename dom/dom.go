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

// Package dom defines the page model the toolkit operates on.
//
// A Document answers selector queries against the current page and exposes
// the page's local storage. Nodes are handles to elements found by a query;
// they are only valid for the operation that found them and callers must not
// keep them across steps. Whoever queried a node releases it with Release
// once done.
package dom

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound reports that no element matched a selector.
var ErrNotFound = errors.New("target not found")

// Node is a handle to one element.
type Node interface {
	// Click performs a DOM click on the element.
	Click(ctx context.Context) error
	// SetValue assigns the element's value property. No events are sent.
	SetValue(ctx context.Context, value string) error
	// Dispatch sends a bubbling event of each type, in order.
	Dispatch(ctx context.Context, events ...string) error
	// Attribute returns an attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Checked returns the element's native checked property.
	Checked(ctx context.Context) (bool, error)
	// TextContent returns the element's textContent.
	TextContent(ctx context.Context) (string, error)
	// InnerText returns the element's rendered text.
	InnerText(ctx context.Context) (string, error)
}

// Releaser is implemented by nodes that hold a resource in the page, such
// as a DevTools remote object.
type Releaser interface {
	Release(ctx context.Context) error
}

// Release frees the page resources held by nodes. Nil nodes and nodes that
// hold nothing are ignored. Errors are dropped: a handle that cannot be
// released is freed by the page on its next navigation anyway.
func Release(ctx context.Context, nodes ...Node) {
	for _, n := range nodes {
		if r, ok := n.(Releaser); ok {
			r.Release(ctx)
		}
	}
}

// Document is a live page.
type Document interface {
	// Query returns the first element matching sel, or nil if none does.
	Query(ctx context.Context, sel string) (Node, error)
	// QueryAll returns every element matching sel in document order.
	QueryAll(ctx context.Context, sel string) ([]Node, error)
	// StorageItem reads key from the page's local storage.
	StorageItem(ctx context.Context, key string) (string, bool, error)
}

// CSSString quotes s for use as a string inside a CSS attribute selector.
func CSSString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
