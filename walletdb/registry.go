// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package walletdb

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNoDecoder is returned by Registry.Decode for unregistered tags.
var ErrNoDecoder = errors.New("no decoder registered for tag")

// Decoder turns the raw parts of one wallet record into a typed value.
type Decoder interface {
	Name() string
	Decode(t Triple) (any, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc struct {
	Label string
	Fn    func(t Triple) (any, error)
}

func (d DecoderFunc) Name() string {
	return d.Label
}

func (d DecoderFunc) Decode(t Triple) (any, error) {
	return d.Fn(t)
}

// Registry maps tags to decoders.  It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register installs d for tag, replacing any earlier decoder.
func (r *Registry) Register(tag string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[tag] = d
}

// Lookup returns the decoder for tag.
func (r *Registry) Lookup(tag string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[tag]
	return d, ok
}

// Tags lists the registered tags in order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.decoders))
	for tag := range r.decoders {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Decode dispatches t to the decoder for its tag.
func (r *Registry) Decode(t Triple) (any, error) {
	d, ok := r.Lookup(t.Tag)
	if !ok {
		return nil, fmt.Errorf("%q: %w", t.Tag, ErrNoDecoder)
	}
	v, err := d.Decode(t)
	if err != nil {
		return nil, fmt.Errorf("%s decoding %q: %w", d.Name(), t.Tag, err)
	}
	return v, nil
}
