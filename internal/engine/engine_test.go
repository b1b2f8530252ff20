package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/merge"
	"github.com/ayodele-o/outreach/internal/store"
	"github.com/ayodele-o/outreach/internal/transport"
)

var campaignStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeTransport records requests and fails on demand per recipient.
type fakeTransport struct {
	requests []transport.Request
	fail     map[string]error
	seq      int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fail: make(map[string]error)}
}

func (f *fakeTransport) Send(ctx context.Context, req transport.Request) (transport.Result, error) {
	f.requests = append(f.requests, req)
	if err := f.fail[req.RecipientID]; err != nil {
		return transport.Result{}, err
	}
	f.seq++
	return transport.Result{ProviderMsgID: fmt.Sprintf("msg-%d", f.seq)}, nil
}

func testEngine(st store.Store, tr transport.Transport, rate int) *Engine {
	e := New(st, tr, merge.NewMarkdown(), Config{
		RatePerMin: rate,
		Links: merge.Links{
			OfferLink:          "https://example.com/offer",
			UnsubscribeBaseURL: "https://example.com/unsub",
		},
	}, zap.NewNop())

	i := 0
	e.newID = func() string {
		i++
		return fmt.Sprintf("send-%d", i)
	}
	return e
}

// setClock freezes the engine clock.
func setClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func seedRunningCampaign(m *store.Memory, id, stepsJSON string) {
	started := campaignStart
	m.PutCampaign(&store.Campaign{
		ID:        id,
		TenantID:  "tenant-1",
		Name:      "Launch",
		Channel:   "email",
		Status:    store.CampaignRunning,
		StartedAt: &started,
	})
	m.PutSequence(&store.Sequence{
		ID:         id + "-seq",
		CampaignID: id,
		StepsJSON:  stepsJSON,
		Active:     true,
	})
}

func seedTemplate(m *store.Memory, id string) {
	m.PutTemplate(&store.Template{
		ID:           id,
		Subject:      "Hi {{first_name}}",
		BodyMarkdown: "Hello {{first_name}}, greetings from {{company}}.",
		Locale:       "en",
	})
}

func seedRecipient(m *store.Memory, id, campaignID string) {
	m.PutRecipient(&store.Recipient{
		ID:         id,
		CampaignID: campaignID,
		SourceType: store.SourceLead,
		SourceID:   "lead-" + id,
		Email:      id + "@example.com",
		Name:       "Test Person",
		Status:     store.RecipientPending,
	})
}

const oneStepJSON = `[{"dayOffset":0,"templateId":"tpl-1","channel":"email"}]`

// mustUnmarshalBool sets a flag from its raw JSON encoding, the way the
// import path sees spreadsheet boolean variants.
func mustUnmarshalBool(t *testing.T, raw string, dst *store.SheetBool) {
	t.Helper()
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		t.Fatal(err)
	}
}

func sendsFor(t *testing.T, m *store.Memory, campaignID, recipientID string) []*store.Send {
	t.Helper()
	all, err := m.ListSends(context.Background(), campaignID)
	if err != nil {
		t.Fatal(err)
	}
	var out []*store.Send
	for _, s := range all {
		if s.RecipientID == recipientID {
			out = append(out, s)
		}
	}
	return out
}
