package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayodele-o/outreach/internal/store"
)

func TestTickSendsAndAdvances(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", oneStepJSON)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")

	tr := newFakeTransport()
	e := testEngine(m, tr, 10)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Processed != 1 || res.Sent != 1 || res.Failed != 0 || res.Throttled != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(tr.requests) != 1 {
		t.Fatalf("expected 1 transport request, got %d", len(tr.requests))
	}
	req := tr.requests[0]
	if req.To != "r1@example.com" {
		t.Errorf("to = %q", req.To)
	}
	if req.Subject != "Hi Test" {
		t.Errorf("subject = %q", req.Subject)
	}
	if !strings.Contains(req.HTML, "Hello Test") {
		t.Errorf("body not rendered: %q", req.HTML)
	}
	if strings.Contains(req.HTML, "{{") {
		t.Errorf("merge token leaked into body: %q", req.HTML)
	}

	sends := sendsFor(t, m, "c1", "r1")
	if len(sends) != 1 {
		t.Fatalf("expected 1 send row, got %d", len(sends))
	}
	if sends[0].Status != store.SendSent {
		t.Errorf("send status = %q", sends[0].Status)
	}
	if sends[0].ProviderMsgID != "msg-1" {
		t.Errorf("provider msg id = %q", sends[0].ProviderMsgID)
	}
	if sends[0].RetryCount != 0 {
		t.Errorf("retry count = %d", sends[0].RetryCount)
	}

	// Sequence exhausted: next tick finds nothing due.
	res = e.Tick(context.Background(), "c1")
	if res.Processed != 0 || res.Sent != 0 {
		t.Fatalf("second tick should be idle, got %+v", res)
	}
}

func TestTickWorkedExampleWithThrottle(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", oneStepJSON)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")
	seedRecipient(m, "r2", "c1")

	tr := newFakeTransport()
	e := testEngine(m, tr, 1)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Processed != 2 || res.Sent != 1 || res.Throttled != 1 {
		t.Fatalf("first tick: %+v", res)
	}

	res = e.Tick(context.Background(), "c1")
	if res.Processed != 1 || res.Sent != 1 || res.Throttled != 0 {
		t.Fatalf("second tick: %+v", res)
	}

	res = e.Tick(context.Background(), "c1")
	if res.Processed != 0 {
		t.Fatalf("third tick should be idle, got %+v", res)
	}
}

func TestTickStepNotDueBeforeOffset(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", `[{"dayOffset":3,"templateId":"tpl-1","channel":"email"}]`)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")

	tr := newFakeTransport()
	e := testEngine(m, tr, 10)

	setClock(e, campaignStart.AddDate(0, 0, 3).Add(-time.Minute))
	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("step due too early: %+v", res)
	}

	setClock(e, campaignStart.AddDate(0, 0, 3))
	res := e.Tick(context.Background(), "c1")
	if res.Processed != 1 || res.Sent != 1 {
		t.Fatalf("step not due at offset: %+v", res)
	}
}

func TestTickNegativeOffsetSkipped(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", `[{"dayOffset":-1,"templateId":"tpl-1","channel":"email"}]`)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")

	e := testEngine(m, newFakeTransport(), 10)
	setClock(e, campaignStart.Add(time.Hour))

	if res := e.Tick(context.Background(), "c1"); res.Processed != 0 {
		t.Fatalf("negative offset should never be due: %+v", res)
	}
}

func TestTickPartialFailureIsolated(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", oneStepJSON)
	seedTemplate(m, "tpl-1")
	seedRecipient(m, "r1", "c1")
	seedRecipient(m, "r2", "c1")
	seedRecipient(m, "r3", "c1")

	tr := newFakeTransport()
	tr.fail["r2"] = errors.New("smtp timeout")
	e := testEngine(m, tr, 10)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Processed != 3 || res.Sent != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "send failed for r2") {
		t.Fatalf("errors = %v", res.Errors)
	}

	sends := sendsFor(t, m, "c1", "r2")
	if len(sends) != 1 || sends[0].Status != store.SendTempError {
		t.Fatalf("r2 send = %+v", sends)
	}
	if sends[0].Error != "smtp timeout" {
		t.Errorf("error = %q", sends[0].Error)
	}
	if sends[0].LastErrorAt == nil {
		t.Error("lastErrorAt not set")
	}
}

func TestTickMissingTemplateCountsAsFailure(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", `[{"dayOffset":0,"templateId":"tpl-missing","channel":"email"}]`)
	seedRecipient(m, "r1", "c1")

	e := testEngine(m, newFakeTransport(), 10)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Failed != 1 || res.Sent != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "send failed for r1") {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestTickNonRunningCampaign(t *testing.T) {
	m := store.NewMemory()
	started := campaignStart
	m.PutCampaign(&store.Campaign{ID: "c1", Status: store.CampaignPaused, StartedAt: &started})

	e := testEngine(m, newFakeTransport(), 10)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Processed != 0 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTickMissingCampaign(t *testing.T) {
	e := testEngine(store.NewMemory(), newFakeTransport(), 10)
	setClock(e, campaignStart)

	res := e.Tick(context.Background(), "nope")
	if len(res.Errors) != 1 {
		t.Fatalf("expected an error entry, got %+v", res)
	}
}

func TestTickInvalidStepsJSON(t *testing.T) {
	m := store.NewMemory()
	seedRunningCampaign(m, "c1", `{"not":"an array"`)
	seedRecipient(m, "r1", "c1")

	e := testEngine(m, newFakeTransport(), 10)
	setClock(e, campaignStart.Add(time.Second))

	res := e.Tick(context.Background(), "c1")
	if res.Processed != 0 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}
