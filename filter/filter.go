/*
DESCRIPTION
  filter.go provides the interface and chain parsing for the filters
  applied to the decoded background picture before display.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package filter provides the interface and implementations of the
// post-decode filters applied to the background video before display.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/fovid/yuv"
)

// Filter is a picture filter applied in place.
type Filter interface {
	// Apply filters p in place.
	Apply(p *yuv.Picture) error

	// Close releases filter resources.
	Close() error
}

// NoOp performs no operation on the picture.
type NoOp struct{}

// NewNoOp returns a new NoOp.
func NewNoOp() *NoOp { return &NoOp{} }

// Apply implements Filter.
func (n *NoOp) Apply(p *yuv.Picture) error { return nil }

// Close implements Filter.
func (n *NoOp) Close() error { return nil }

// Chain is an ordered sequence of filters applied front to back.
type Chain []Filter

// Apply applies every filter of the chain in order.
func (c Chain) Apply(p *yuv.Picture) error {
	for _, f := range c {
		err := f.Apply(p)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes every filter of the chain.
func (c Chain) Close() error {
	var firstErr error
	for _, f := range c {
		err := f.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Parse parses a textual filter chain description of the form
// "name=k1=v1:k2=v2,name2,..." into a Chain. An empty description
// yields a chain holding a single NoOp.
func Parse(desc string) (Chain, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" || desc == "none" {
		return Chain{NewNoOp()}, nil
	}

	var chain Chain
	for _, part := range strings.Split(desc, ",") {
		name, opts, err := splitFilter(part)
		if err != nil {
			return nil, err
		}

		switch name {
		case "noop":
			chain = append(chain, NewNoOp())
		case "smartblur":
			f, err := NewSmartBlur(opts)
			if err != nil {
				return nil, err
			}
			chain = append(chain, f)
		case "unsharp", "sharpen":
			f, err := NewUnsharp(opts)
			if err != nil {
				return nil, err
			}
			chain = append(chain, f)
		default:
			return nil, fmt.Errorf("unknown filter: %q", name)
		}
	}
	return chain, nil
}

// splitFilter splits "name=k1=v1:k2=v2" into the name and its options.
func splitFilter(part string) (string, map[string]float64, error) {
	part = strings.TrimSpace(part)
	name, rest, found := strings.Cut(part, "=")
	opts := make(map[string]float64)
	if !found {
		return name, opts, nil
	}

	for _, kv := range strings.Split(rest, ":") {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			return "", nil, fmt.Errorf("bad filter option %q in %q", kv, part)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad filter option value %q in %q: %w", v, part, err)
		}
		opts[k] = f
	}
	return name, opts, nil
}
