package telegram

import "testing"

func TestPreviewStoreEvictsOldest(t *testing.T) {
	s := newPreviewStore(2)
	s.put(1, 10, "https://img.example.com/a.png")
	s.put(1, 11, "https://img.example.com/b.png")
	s.put(1, 12, "https://img.example.com/c.png")

	if _, ok := s.get(1, 10); ok {
		t.Fatal("oldest preview kept past the limit")
	}
	if url, ok := s.get(1, 12); !ok || url != "https://img.example.com/c.png" {
		t.Fatalf("get(12) = %q, %v", url, ok)
	}
	if _, ok := s.get(2, 12); ok {
		t.Fatal("preview leaked across chats")
	}
}

func TestPreviewStoreForget(t *testing.T) {
	s := newPreviewStore(4)
	s.put(1, 10, "https://img.example.com/a.png")
	s.forget(1, 10)
	s.forget(1, 99)
	if _, ok := s.get(1, 10); ok {
		t.Fatal("forgotten preview still resolvable")
	}
	if len(s.chats[1].order) != 0 {
		t.Fatalf("order = %v", s.chats[1].order)
	}
}
