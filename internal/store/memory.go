package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and local development.
// List methods preserve insertion order, which the eligibility resolver
// relies on for stable scheduling order.
type Memory struct {
	mu         sync.RWMutex
	campaigns  map[string]*Campaign
	sequences  []*Sequence
	recipients []*Recipient
	sends      []*Send
	templates  map[string]*Template
	leads      map[string]*Lead
	partners   map[string]*Partner
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		campaigns: make(map[string]*Campaign),
		templates: make(map[string]*Template),
		leads:     make(map[string]*Lead),
		partners:  make(map[string]*Partner),
	}
}

func (m *Memory) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) PutCampaign(c *Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
}

func (m *Memory) UpdateCampaign(ctx context.Context, c *Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.campaigns[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *Memory) ListRunningCampaigns(ctx context.Context) ([]*Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Campaign
	for _, c := range m.campaigns {
		if c.Status == CampaignRunning {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) GetActiveSequence(ctx context.Context, campaignID string) (*Sequence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sequences {
		if s.CampaignID == campaignID && s.Active.Bool() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) PutSequence(s *Sequence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sequences = append(m.sequences, &cp)
}

func (m *Memory) ListRecipients(ctx context.Context, campaignID string) ([]*Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Recipient
	for _, r := range m.recipients {
		if r.CampaignID == campaignID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) PutRecipient(r *Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.recipients = append(m.recipients, &cp)
}

func (m *Memory) UpdateRecipient(ctx context.Context, r *Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.recipients {
		if existing.ID == r.ID {
			cp := *r
			m.recipients[i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListSends(ctx context.Context, campaignID string) ([]*Send, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Send
	for _, s := range m.sends {
		if s.CampaignID == campaignID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) CreateSend(ctx context.Context, s *Send) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sends = append(m.sends, &cp)
	return nil
}

func (m *Memory) UpdateSend(ctx context.Context, s *Send) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.sends {
		if existing.ID == s.ID {
			cp := *s
			m.sends[i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) GetTemplate(ctx context.Context, id string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) PutTemplate(t *Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.templates[t.ID] = &cp
}

func (m *Memory) GetLead(ctx context.Context, id string) (*Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *Memory) PutLead(l *Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.leads[l.ID] = &cp
}

func (m *Memory) GetPartner(ctx context.Context, id string) (*Partner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.partners[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) PutPartner(p *Partner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.partners[p.ID] = &cp
}
