// Package transport defines the message-transport capability consumed by the
// dispatch engine, plus the shipped provider adapters.
package transport

import "context"

// Request is one outbound message.
type Request struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Tags        []string
	CampaignID  string
	TemplateID  string
	RecipientID string
}

// Result reports a successful provider hand-off.
type Result struct {
	ProviderMsgID string
}

// Transport delivers one message. A returned error is treated as a transient
// delivery failure by the engine and retried per its backoff policy.
type Transport interface {
	Send(ctx context.Context, req Request) (Result, error)
}
