package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
)

type registration struct {
	adapter ports.VendorAdapter
	initErr error
}

// Registry maps vendor tags to adapters. A vendor whose adapter failed to
// initialize stays registered with its failure so that lookups report the
// reason instead of "unknown vendor".
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

func normalizeVendor(vendor string) string {
	return strings.ToLower(strings.TrimSpace(vendor))
}

// Register makes adapter available under its vendor tag.
func (r *Registry) Register(adapter ports.VendorAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeVendor(adapter.Vendor())] = registration{adapter: adapter}
}

// Disable records that the vendor could not be initialized.
func (r *Registry) Disable(vendor string, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeVendor(vendor)] = registration{initErr: reason}
}

// Resolve returns the adapter for vendor or an ErrVendorUnavailable error.
func (r *Registry) Resolve(vendor string) (ports.VendorAdapter, error) {
	key := normalizeVendor(vendor)

	r.mu.RLock()
	reg, ok := r.entries[key]
	r.mu.RUnlock()

	switch {
	case !ok:
		return nil, fmt.Errorf("%w: vendor %q is not registered", domain.ErrVendorUnavailable, key)
	case reg.initErr != nil:
		return nil, fmt.Errorf("%w: vendor %q failed to initialize: %v", domain.ErrVendorUnavailable, key, reg.initErr)
	case reg.adapter == nil:
		return nil, fmt.Errorf("%w: vendor %q has no adapter", domain.ErrVendorUnavailable, key)
	}
	return reg.adapter, nil
}

// Adapters returns every initialized adapter, sorted by vendor tag.
func (r *Registry) Adapters() []ports.VendorAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.VendorAdapter, 0, len(r.entries))
	for _, reg := range r.entries {
		if reg.adapter != nil {
			out = append(out, reg.adapter)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor() < out[j].Vendor() })
	return out
}

// Statuses reports availability of every registered vendor, sorted by tag.
func (r *Registry) Statuses() []ports.VendorStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.VendorStatus, 0, len(r.entries))
	for vendor, reg := range r.entries {
		st := ports.VendorStatus{Vendor: vendor, Available: reg.adapter != nil && reg.initErr == nil}
		if reg.initErr != nil {
			st.Reason = reg.initErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out
}
