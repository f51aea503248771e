package convo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConversation = `{
  "title": "Trip planning",
  "mapping": {
    "root": {"message": null, "parent": "", "children": ["m1"]},
    "m1": {
      "message": {"author": {"role": "user"}, "content": {"content_type": "text", "parts": ["hello", {"asset": "x"}, "world"]}, "create_time": 1700000000.5},
      "parent": "root", "children": ["m2"]
    },
    "m2": {
      "message": {"author": {"role": "assistant"}, "content": "plain reply", "create_time": null},
      "parent": "m1", "children": []
    }
  }
}`

func TestParseExtractsText(t *testing.T) {
	t.Parallel()

	c, err := Parse("abc", []byte(sampleConversation))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.ID != "abc" || c.Title != "Trip planning" {
		t.Fatalf("unexpected header: id=%q title=%q", c.ID, c.Title)
	}
	if got := c.Mapping["m1"].Message.Text(); got != "hello\nworld" {
		t.Errorf("m1 text = %q", got)
	}
	if got := c.Mapping["m1"].Message.Time(); got != 1700000000.5 {
		t.Errorf("m1 time = %v", got)
	}
	if got := c.Mapping["m2"].Message.Text(); got != "plain reply" {
		t.Errorf("m2 text = %q", got)
	}
	if got := c.Mapping["m2"].Message.Time(); got != 0 {
		t.Errorf("null create_time should read as 0, got %v", got)
	}
	if got := c.Mapping["root"].Message.Text(); got != "" {
		t.Errorf("nil message text = %q", got)
	}
}

func TestDirFetcher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "abc.json"), []byte(sampleConversation), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := NewDirFetcher(dir)
	ctx := context.Background()

	c, err := f.Fetch(ctx, "abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if c.Title != "Trip planning" {
		t.Errorf("title = %q", c.Title)
	}

	tests := []struct {
		name string
		id   string
	}{
		{"missing", "nope"},
		{"invalid json", "bad"},
		{"path escape", "../abc"},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Fetch(ctx, tc.id)
			if !IsFetchError(err) {
				t.Fatalf("expected FetchError, got %v", err)
			}
		})
	}
}

type countingFetcher struct {
	calls int
	fail  bool
}

func (f *countingFetcher) Fetch(ctx context.Context, id string) (*Conversation, error) {
	f.calls++
	if f.fail {
		return nil, &FetchError{ConversationID: id, Err: errors.New("offline")}
	}
	return &Conversation{ID: id, Title: "t-" + id}, nil
}

func TestCachedFetcherMemoizes(t *testing.T) {
	t.Parallel()

	inner := &countingFetcher{}
	f := NewCachedFetcher(inner, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(ctx, "a"); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	f.Invalidate("a")
	if _, err := f.Fetch(ctx, "a"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", inner.calls)
	}

	// size bound evicts the least recently used entry
	f.Fetch(ctx, "b")
	f.Fetch(ctx, "c")
	if f.Len() != 2 {
		t.Fatalf("expected 2 cached entries, got %d", f.Len())
	}
}

func TestCachedFetcherSkipsFailures(t *testing.T) {
	t.Parallel()

	inner := &countingFetcher{fail: true}
	f := NewCachedFetcher(inner, 4, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(ctx, "a"); !IsFetchError(err) {
			t.Fatalf("expected FetchError, got %v", err)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("failures must not be cached, got %d calls", inner.calls)
	}
}

func TestCachedFetcherExpires(t *testing.T) {
	t.Parallel()

	inner := &countingFetcher{}
	f := NewCachedFetcher(inner, 4, 20*time.Millisecond)
	ctx := context.Background()

	f.Fetch(ctx, "a")
	time.Sleep(100 * time.Millisecond)
	f.Fetch(ctx, "a")
	if inner.calls != 2 {
		t.Fatalf("expected expired entry to be refetched, got %d calls", inner.calls)
	}
}
