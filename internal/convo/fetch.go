package convo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher resolves a conversation id to its title and raw message map.
// Implementations do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*Conversation, error)
}

// FetchError reports that a conversation could not be loaded.
type FetchError struct {
	ConversationID string
	Err            error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch conversation %s: %v", e.ConversationID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// DirFetcher reads conversations from <root>/<id>.json.
type DirFetcher struct {
	root string
}

func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{root: root}
}

// Path returns the file a conversation id maps to.
func (f *DirFetcher) Path(id string) string {
	return filepath.Join(f.root, id+".json")
}

func (f *DirFetcher) Fetch(ctx context.Context, id string) (*Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{ConversationID: id, Err: err}
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, &FetchError{ConversationID: id, Err: errors.New("invalid conversation id")}
	}

	data, err := os.ReadFile(f.Path(id))
	if err != nil {
		return nil, &FetchError{ConversationID: id, Err: err}
	}

	c, err := Parse(id, data)
	if err != nil {
		return nil, &FetchError{ConversationID: id, Err: fmt.Errorf("decode: %w", err)}
	}
	return c, nil
}
