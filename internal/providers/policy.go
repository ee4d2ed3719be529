package providers

import (
	"fmt"

	"renderq/internal/domain"
)

// defaultOrder is the per-kind provider preference consulted when the
// deployment does not override it. Local workers handle plain conversions;
// generation kinds prefer the GPU vendors.
var defaultOrder = map[domain.JobKind][]domain.Provider{
	domain.JobKindConvert:     {domain.ProviderLocal},
	domain.JobKindLipSync:     {domain.ProviderRunpod, domain.ProviderFal},
	domain.JobKindTextToImage: {domain.ProviderRunpod, domain.ProviderFal},
	domain.JobKindAvatarVideo: {domain.ProviderRunpod, domain.ProviderFal},
}

// Policy selects the execution backend for a job. The decision is made once,
// at submission, and never re-evaluated mid-job.
type Policy struct {
	clients map[domain.Provider]Client
	order   map[domain.JobKind][]domain.Provider
}

// NewPolicy builds a policy over the registered clients. order entries
// override the default per-kind preference; nil keeps the defaults.
func NewPolicy(clients []Client, order map[domain.JobKind][]domain.Provider) *Policy {
	byName := make(map[domain.Provider]Client, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	merged := make(map[domain.JobKind][]domain.Provider, len(defaultOrder))
	for kind, providers := range defaultOrder {
		merged[kind] = providers
	}
	for kind, providers := range order {
		merged[kind] = providers
	}
	return &Policy{clients: byName, order: merged}
}

// Client returns the registered client for a provider.
func (p *Policy) Client(provider domain.Provider) (Client, bool) {
	c, ok := p.clients[provider]
	return c, ok
}

// Choose picks the backend for a submission. A pinned provider wins if it is
// configured for the kind; certain payload shapes force a provider (the
// runpod lip-sync endpoint only accepts a still image, so a video input
// forces fal); otherwise the first configured provider in preference order
// wins. No configured provider at all is a synchronous failure; the caller
// must not create a job record.
func (p *Policy) Choose(kind domain.JobKind, pinned domain.Provider, payload domain.JobPayload) (Client, error) {
	if pinned != "" {
		c, ok := p.clients[pinned]
		if !ok || !c.IsConfigured(kind) {
			return nil, fmt.Errorf("provider %s for kind %s: %w", pinned, kind, domain.ErrProviderUnavailable)
		}
		return c, nil
	}

	if forced := forcedProvider(kind, payload); forced != "" {
		c, ok := p.clients[forced]
		if !ok || !c.IsConfigured(kind) {
			return nil, fmt.Errorf("forced provider %s for kind %s: %w", forced, kind, domain.ErrProviderUnavailable)
		}
		return c, nil
	}

	for _, name := range p.order[kind] {
		c, ok := p.clients[name]
		if ok && c.IsConfigured(kind) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("kind %s: %w", kind, domain.ErrProviderUnavailable)
}

func forcedProvider(kind domain.JobKind, payload domain.JobPayload) domain.Provider {
	if kind == domain.JobKindLipSync && payload.VideoURL != "" {
		return domain.ProviderFal
	}
	return ""
}
