package store

import (
	"errors"
	"testing"
)

func TestMemory_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if err := m.Put("balance", "Вова", Document{"amount": 42.0}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	doc, err := m.Get("balance", "Вова")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc["amount"] != 42.0 {
		t.Fatalf("amount=%v", doc["amount"])
	}

	// The returned document is a copy; mutating it must not leak back.
	doc["amount"] = 1.0
	again, _ := m.Get("balance", "Вова")
	if again["amount"] != 42.0 {
		t.Fatalf("store aliased caller's map: amount=%v", again["amount"])
	}
}

func TestMemory_GetMissing(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if _, err := m.Get("balance", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestMemory_PutReplacesWholeDocument(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put("config", "Вова", Document{"homeRadius": 500, "notificationTime": "19:00"})
	m.Put("config", "Вова", Document{"homeRadius": 200})

	doc, _ := m.Get("config", "Вова")
	if _, ok := doc["notificationTime"]; ok {
		t.Fatal("Put did not replace the document")
	}
}

func TestMemory_UpdateMerges(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put("config", "Вова", Document{"homeRadius": 500, "notificationTime": "19:00"})

	if err := m.Update("config", "Вова", Document{"homeRadius": 200}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, _ := m.Get("config", "Вова")
	if doc["homeRadius"] != 200 || doc["notificationTime"] != "19:00" {
		t.Fatalf("doc=%v", doc)
	}
}

func TestMemory_UpdateMissing(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if err := m.Update("config", "nobody", Document{"k": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestMemory_RecentNewestFirst(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	for i := 1; i <= 5; i++ {
		m.Append("history", Document{"seq": i})
	}

	docs, err := m.Recent("history", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len=%d", len(docs))
	}
	for i, want := range []int{5, 4, 3} {
		if docs[i]["seq"] != want {
			t.Fatalf("docs[%d]=%v, want seq=%d", i, docs[i], want)
		}
	}

	// Asking for more than exists returns everything.
	all, _ := m.Recent("history", 100)
	if len(all) != 5 {
		t.Fatalf("len=%d", len(all))
	}
}

func TestMemory_WatchDeliversCurrentThenChanges(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put("balance", "Вова", Document{"amount": 1.0})

	sub := m.Watch("balance", "Вова")
	defer sub.Cancel()

	doc := <-sub.C
	if doc["amount"] != 1.0 {
		t.Fatalf("initial snapshot=%v", doc)
	}

	m.Put("balance", "Вова", Document{"amount": 2.0})
	doc = <-sub.C
	if doc["amount"] != 2.0 {
		t.Fatalf("after put=%v", doc)
	}

	m.Update("balance", "Вова", Document{"amount": 3.0})
	doc = <-sub.C
	if doc["amount"] != 3.0 {
		t.Fatalf("after update=%v", doc)
	}
}

func TestMemory_WatchSlowSubscriberSeesLatest(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	sub := m.Watch("balance", "Вова")
	defer sub.Cancel()

	// Nobody drains the channel between these writes.
	m.Put("balance", "Вова", Document{"amount": 1.0})
	m.Put("balance", "Вова", Document{"amount": 2.0})
	m.Put("balance", "Вова", Document{"amount": 3.0})

	doc := <-sub.C
	if doc["amount"] != 3.0 {
		t.Fatalf("pending revision=%v, want the latest", doc)
	}
}

func TestMemory_CancelClosesAndStopsDelivery(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	sub := m.Watch("balance", "Вова")
	sub.Cancel()
	sub.Cancel() // safe to call again

	if _, ok := <-sub.C; ok {
		t.Fatal("channel not closed after Cancel")
	}

	// A write after cancel must not panic on the closed channel.
	m.Put("balance", "Вова", Document{"amount": 1.0})
}

func TestMemory_WatchersAreIndependent(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	a := m.Watch("balance", "Вова")
	b := m.Watch("balance", "Вова")
	defer b.Cancel()

	a.Cancel()
	m.Put("balance", "Вова", Document{"amount": 7.0})

	doc := <-b.C
	if doc["amount"] != 7.0 {
		t.Fatalf("doc=%v", doc)
	}
}
