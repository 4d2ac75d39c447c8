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

// Package webstore reads values that page scripts persist in local storage.
package webstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ttbt-io/pagepilot/dom"
	"github.com/ttbt-io/pagepilot/poll"
)

const (
	DefaultKey      = "token"
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 200 * time.Millisecond
)

// Options configures ExtractToken. Zero values select the defaults.
type Options struct {
	Key         string
	Timeout     time.Duration
	Interval    time.Duration
	ErrorPolicy poll.ErrorPolicy
	Logger      poll.Logger
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// ExtractToken waits up to opts.Timeout for a non-empty value under opts.Key
// and returns it with one surrounding pair of double quotes removed. The
// boolean is false when the key never appeared in time; that is not an
// error.
func ExtractToken(ctx context.Context, doc dom.Document, opts Options) (string, bool, error) {
	opts = opts.withDefaults()
	pollOpts := []poll.Option{
		poll.WithName("storage " + opts.Key),
		poll.WithInterval(opts.Interval),
		poll.WithErrorPolicy(opts.ErrorPolicy),
	}
	if opts.Logger != nil {
		pollOpts = append(pollOpts, poll.WithLogger(opts.Logger))
	}

	v, err := poll.Within(ctx, opts.Timeout, func(ctx context.Context) (string, bool, error) {
		v, ok, err := doc.StorageItem(ctx, opts.Key)
		return v, ok && v != "", err
	}, pollOpts...)
	if errors.Is(err, poll.ErrTimeout) {
		if opts.Logger != nil {
			opts.Logger.Logf("storage %s: not set after %v", opts.Key, opts.Timeout)
		}
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("webstore: %s: %w", opts.Key, err)
	}
	v = Unquote(v)
	if opts.Logger != nil {
		opts.Logger.Logf("storage %s: found %d bytes", opts.Key, len(v))
	}
	return v, true, nil
}

// Unquote removes one leading and one trailing double quote, each only if
// present. Values stored with JSON.stringify look like "abc".
func Unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
