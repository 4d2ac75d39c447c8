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

// Package locate waits for elements to appear in a dom.Document.
package locate

import (
	"context"
	"fmt"
	"time"

	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/poll"
)

// MatchFunc reports whether a candidate node is the one being waited for.
type MatchFunc func(ctx context.Context, n dom.Node) (bool, error)

// Element waits until an element matches sel and returns the first one.
func Element(ctx context.Context, doc dom.Document, sel string, opts ...poll.Option) (dom.Node, error) {
	n, err := poll.Until(ctx, func(ctx context.Context) (dom.Node, bool, error) {
		n, err := doc.Query(ctx, sel)
		return n, n != nil, err
	}, named(sel, opts)...)
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", sel, err)
	}
	return n, nil
}

// All waits until at least one element matches sel and returns all matches
// in document order.
func All(ctx context.Context, doc dom.Document, sel string, opts ...poll.Option) ([]dom.Node, error) {
	nodes, err := poll.Until(ctx, func(ctx context.Context) ([]dom.Node, bool, error) {
		nodes, err := doc.QueryAll(ctx, sel)
		return nodes, len(nodes) > 0, err
	}, named(sel, opts)...)
	if err != nil {
		return nil, fmt.Errorf("locate all %q: %w", sel, err)
	}
	return nodes, nil
}

// Match waits until an element matching sel satisfies fn and returns the
// first such element in document order. Candidates that did not match are
// released on every check.
func Match(ctx context.Context, doc dom.Document, sel string, fn MatchFunc, opts ...poll.Option) (dom.Node, error) {
	n, err := poll.Until(ctx, findMatch(doc, sel, fn), named(sel, opts)...)
	if err != nil {
		return nil, fmt.Errorf("locate match %q: %w", sel, err)
	}
	return n, nil
}

// MatchWithin is Match bounded by timeout; it returns poll.ErrTimeout
// (wrapped) when nothing matched in time.
func MatchWithin(ctx context.Context, doc dom.Document, sel string, fn MatchFunc, timeout time.Duration, opts ...poll.Option) (dom.Node, error) {
	n, err := poll.Within(ctx, timeout, findMatch(doc, sel, fn), named(sel, opts)...)
	if err != nil {
		return nil, fmt.Errorf("locate match %q: %w", sel, err)
	}
	return n, nil
}

// findMatch releases every candidate except the one it returns.
func findMatch(doc dom.Document, sel string, fn MatchFunc) poll.Predicate[dom.Node] {
	return func(ctx context.Context) (dom.Node, bool, error) {
		nodes, err := doc.QueryAll(ctx, sel)
		if err != nil {
			return nil, false, err
		}
		for i, n := range nodes {
			ok, err := fn(ctx, n)
			if err != nil {
				dom.Release(ctx, nodes[i:]...)
				return nil, false, err
			}
			if ok {
				dom.Release(ctx, nodes[i+1:]...)
				return n, true, nil
			}
			dom.Release(ctx, n)
		}
		return nil, false, nil
	}
}

func named(sel string, opts []poll.Option) []poll.Option {
	return append([]poll.Option{poll.WithName("locate " + sel)}, opts...)
}
