package search

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

type fakeEngine struct {
	healthy bool
	err     error
	results []Result
	indexed []MessageRecord
	deleted []string
}

func (f *fakeEngine) Search(context.Context, Query) ([]Result, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.results, len(f.results), nil
}

func (f *fakeEngine) Healthy() bool { return f.healthy }

func (f *fakeEngine) IndexMessages(records []MessageRecord) error {
	f.indexed = append(f.indexed, records...)
	return nil
}

func (f *fakeEngine) DeleteMessage(id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeFallback struct {
	calls   int
	results []Result
	records []MessageRecord
}

func (f *fakeFallback) Search(context.Context, Query) ([]Result, int, error) {
	f.calls++
	return f.results, len(f.results), nil
}

func (f *fakeFallback) Healthy() bool { return true }

func (f *fakeFallback) LoadAllRecords(context.Context) ([]MessageRecord, error) {
	return f.records, nil
}

func newSyncService(engine Engine, fallback Fallback) *Service {
	svc := NewService(engine, fallback, zerolog.New(io.Discard))
	svc.async = false
	return svc
}

func TestSearchUsesEngineWhenHealthy(t *testing.T) {
	engine := &fakeEngine{healthy: true, results: []Result{{ID: "msg_1"}}}
	fallback := &fakeFallback{}
	svc := newSyncService(engine, fallback)

	resp := svc.Search(context.Background(), Query{Text: "deploy", WorkspaceID: "ws_1"})
	if len(resp.Results) != 1 || resp.Results[0].ID != "msg_1" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback should not run, calls=%d", fallback.calls)
	}
}

func TestSearchFallsBackOnEngineError(t *testing.T) {
	engine := &fakeEngine{healthy: true, err: errors.New("boom")}
	fallback := &fakeFallback{results: []Result{{ID: "msg_2"}}}
	svc := newSyncService(engine, fallback)

	resp := svc.Search(context.Background(), Query{Text: "deploy", WorkspaceID: "ws_1"})
	if fallback.calls != 1 {
		t.Fatalf("expected fallback call, got %d", fallback.calls)
	}
	if resp.Total != 1 || resp.Query != "deploy" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSearchWithoutEngineReturnsEmptySlice(t *testing.T) {
	svc := newSyncService(nil, &fakeFallback{})
	resp := svc.Search(context.Background(), Query{Text: "x", WorkspaceID: "ws_1"})
	if resp.Results == nil {
		t.Fatal("results must be non-nil for JSON encoding")
	}
}

func TestIndexMessageSkipsConversationMessages(t *testing.T) {
	engine := &fakeEngine{healthy: true}
	svc := newSyncService(engine, &fakeFallback{})

	svc.IndexMessage(MessageRecord{ID: "msg_dm", WorkspaceID: "ws_1"})
	svc.IndexMessage(MessageRecord{ID: "msg_ch", WorkspaceID: "ws_1", ChannelID: "ch_1"})
	if len(engine.indexed) != 1 || engine.indexed[0].ID != "msg_ch" {
		t.Fatalf("unexpected indexed records: %+v", engine.indexed)
	}

	svc.DeleteMessages("msg_ch", "msg_other")
	if len(engine.deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %v", engine.deleted)
	}
}

func TestReindexAllPushesFallbackRecords(t *testing.T) {
	engine := &fakeEngine{healthy: true}
	fallback := &fakeFallback{records: []MessageRecord{{ID: "a", ChannelID: "c"}, {ID: "b", ChannelID: "c"}}}
	svc := newSyncService(engine, fallback)

	svc.ReindexAll(context.Background())
	if len(engine.indexed) != 2 {
		t.Fatalf("expected 2 records indexed, got %d", len(engine.indexed))
	}
}
