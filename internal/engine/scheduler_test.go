package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayodele-o/outreach/internal/store"
)

func TestRetryBackoffFirstTier(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", oneStepJSON)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")

	tr := newFakeTransport()
	tr.fail["r1"] = errors.New("connection reset")
	e := testEngine(m, tr, 10)

	t0 := campaignStart.Add(time.Second)
	setClock(e, t0)
	res := e.Tick(context.Background(), "c1")
	if res.Failed != 1 {
		t.Fatalf("first attempt should fail: %+v", res)
	}

	// Inside the 10 minute backoff window nothing is due.
	setClock(e, t0.Add(5*time.Minute))
	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("retried too early: %+v", res)
	}

	// At the boundary the retry runs, and succeeds now that the transport
	// has recovered.
	delete(tr.fail, "r1")
	setClock(e, t0.Add(10*time.Minute))
	res = e.Tick(context.Background(), "c1")
	if res.Processed != 1 || res.Sent != 1 {
		t.Fatalf("retry not dispatched: %+v", res)
	}

	sends := sendsFor(t, m, "c1", "r1")
	if len(sends) != 2 {
		t.Fatalf("expected 2 attempt rows, got %d", len(sends))
	}
	retry := sends[1]
	if retry.StepIndex != 0 {
		t.Errorf("retry advanced past the failed step: index %d", retry.StepIndex)
	}
	if retry.RetryCount != 1 {
		t.Errorf("retry count not carried: %d", retry.RetryCount)
	}
	if retry.Status != store.SendSent {
		t.Errorf("retry status = %q", retry.Status)
	}
}

func TestRetryBackoffSecondTierAndPromotion(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", oneStepJSON)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")

	tr := newFakeTransport()
	tr.fail["r1"] = errors.New("mailbox busy")
	e := testEngine(m, tr, 10)

	t0 := campaignStart.Add(time.Second)
	setClock(e, t0)
	e.Tick(context.Background(), "c1") // attempt 1 fails, retryCount 0

	t1 := t0.Add(10 * time.Minute)
	setClock(e, t1)
	if res := e.Tick(context.Background(), "c1"); res.Failed != 1 {
		t.Fatalf("first retry should run and fail: %+v", res)
	}

	// The second retry waits the longer 60 minute interval.
	setClock(e, t1.Add(10*time.Minute))
	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("second retry ran on the short interval: %+v", res)
	}

	t2 := t1.Add(60 * time.Minute)
	setClock(e, t2)
	if res := e.Tick(context.Background(), "c1"); res.Failed != 1 {
		t.Fatalf("second retry should run and fail: %+v", res)
	}

	// Retry budget spent: the next pass promotes the send instead of
	// dispatching.
	setClock(e, t2.Add(time.Second))
	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("promotion tick should dispatch nothing: %+v", res)
	}

	sends := sendsFor(t, m, "c1", "r1")
	if len(sends) != 3 {
		t.Fatalf("expected 3 attempt rows, got %d", len(sends))
	}
	last := sends[2]
	if last.Status != store.SendPermError {
		t.Errorf("final status = %q", last.Status)
	}
	if !strings.HasSuffix(last.Error, " (retries exhausted)") {
		t.Errorf("error = %q", last.Error)
	}
	if last.RetryCount != 2 {
		t.Errorf("retry count = %d", last.RetryCount)
	}

	// And the recipient is never scheduled for that step again.
	setClock(e, t2.Add(24*time.Hour))
	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("recipient rescheduled after permanent failure: %+v", res)
	}
}

func TestIneligibleRecipientsSkipped(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", oneStepJSON)
	seedTemplate(m, "tpl-1")

	unsub := &store.Recipient{
		ID: "r-unsub", CampaignID: "c1", Email: "u@example.com",
		Status: store.RecipientPending,
	}
	mustUnmarshalBool(t, `"TRUE"`, &unsub.Unsubscribed)
	m.PutRecipient(unsub)

	supp := &store.Recipient{
		ID: "r-supp", CampaignID: "c1", Email: "s@example.com",
		Status: store.RecipientPending,
	}
	mustUnmarshalBool(t, `1`, &supp.Suppressed)
	m.PutRecipient(supp)

	m.PutRecipient(&store.Recipient{
		ID: "r-bounced", CampaignID: "c1", Email: "b@example.com",
		Status: store.RecipientBounced,
	})
	m.PutRecipient(&store.Recipient{
		ID: "r-opted-out", CampaignID: "c1", Email: "o@example.com",
		Status: store.RecipientUnsubscribed,
	})
	seedRecipient(m, "r-ok", "c1")

	tr := newFakeTransport()
	e := testEngine(m, tr, 10)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Processed != 1 || res.Sent != 1 {
		t.Fatalf("only r-ok should be dispatched: %+v", res)
	}
	if len(tr.requests) != 1 || tr.requests[0].RecipientID != "r-ok" {
		t.Fatalf("requests = %+v", tr.requests)
	}
}

func TestMultiStepSequenceRespectsOffsets(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", `[
		{"dayOffset":0,"templateId":"tpl-1","channel":"email"},
		{"dayOffset":2,"templateId":"tpl-2","channel":"email"}
	]`)
	seedTemplate(m, "tpl-1")
	seedTemplate(m, "tpl-2")
	seedRecipient(m, "r1", "c1")

	tr := newFakeTransport()
	e := testEngine(m, tr, 10)

	setClock(e, campaignStart.Add(time.Second))
	if res := e.Tick(context.Background(), "c1"); res.Sent != 1 {
		t.Fatalf("step 0: %+v", res)
	}

	// Step 1 waits for its own offset even though step 0 is done.
	setClock(e, campaignStart.AddDate(0, 0, 1))
	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("step 1 due too early: %+v", res)
	}

	setClock(e, campaignStart.AddDate(0, 0, 2))
	res := e.Tick(context.Background(), "c1")
	if res.Sent != 1 {
		t.Fatalf("step 1 not due at its offset: %+v", res)
	}
	if got := tr.requests[len(tr.requests)-1].TemplateID; got != "tpl-2" {
		t.Errorf("template = %q", got)
	}
}
