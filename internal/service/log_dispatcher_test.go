package service

import (
	"context"
	"testing"

	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
)

type fakeLogStore struct {
	entries     []model.WebLog
	connections int
	failOn      string
}

func (f *fakeLogStore) Connection(_ context.Context, fn func(tx repository.LogTx) error) error {
	f.connections++
	return fn(f)
}

func (f *fakeLogStore) InsertLog(entry *model.WebLog) error {
	if f.failOn != "" && entry.Message == f.failOn {
		return context.DeadlineExceeded
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func TestLogDispatcherDisabledDiscards(t *testing.T) {
	store := &fakeLogStore{}
	cfg := dispatcherConfig(7)
	cfg.Dispatcher.DbLogEnabled = false
	d := NewLogDispatcher(cfg, store)

	d.Log("user@example.com", model.LogLevelInfo, "ignored")
	if d.Pending() != 0 {
		t.Errorf("disabled dispatcher queued %d entries", d.Pending())
	}
}

func TestLogDispatcherBatchOrder(t *testing.T) {
	store := &fakeLogStore{}
	cfg := dispatcherConfig(7)
	cfg.Dispatcher.DbLogEnabled = true
	d := NewLogDispatcher(cfg, store)

	d.Log("a@example.com", model.LogLevelInfo, "first")
	d.Log("b@example.com", model.LogLevelWarn, "second")
	d.Log("c@example.com", model.LogLevelError, "third")

	if n := d.processBatch(context.Background()); n != 3 {
		t.Fatalf("processed %d, want 3", n)
	}
	if store.connections != 1 {
		t.Errorf("batch used %d connections, want 1", store.connections)
	}
	want := []string{"first", "second", "third"}
	if len(store.entries) != len(want) {
		t.Fatalf("stored %d entries, want %d", len(store.entries), len(want))
	}
	for i, msg := range want {
		if store.entries[i].Message != msg {
			t.Errorf("entry %d = %q, want %q", i, store.entries[i].Message, msg)
		}
	}
}

func TestLogDispatcherHonorsLogLimit(t *testing.T) {
	store := &fakeLogStore{}
	cfg := dispatcherConfig(7)
	cfg.Dispatcher.DbLogEnabled = true
	cfg.Dispatcher.LogQueueLimit = 2
	d := NewLogDispatcher(cfg, store)

	for i := 0; i < 5; i++ {
		d.Log("a@example.com", model.LogLevelInfo, "line")
	}
	if n := d.processBatch(context.Background()); n != 2 {
		t.Fatalf("processed %d, want 2", n)
	}
	if d.Pending() != 3 {
		t.Errorf("pending = %d, want 3", d.Pending())
	}
}

func TestLogDispatcherSkipsFailingLine(t *testing.T) {
	store := &fakeLogStore{failOn: "bad"}
	cfg := dispatcherConfig(7)
	cfg.Dispatcher.DbLogEnabled = true
	d := NewLogDispatcher(cfg, store)

	d.Log("a@example.com", model.LogLevelInfo, "bad")
	d.Log("a@example.com", model.LogLevelInfo, "good")

	if n := d.processBatch(context.Background()); n != 2 {
		t.Fatalf("processed %d, want 2", n)
	}
	if len(store.entries) != 1 || store.entries[0].Message != "good" {
		t.Errorf("surviving entries = %+v, want only the good line", store.entries)
	}
}
