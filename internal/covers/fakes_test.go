package covers

import (
	"context"
	"errors"
	"sync"
)

type fakeStorage struct {
	mu         sync.Mutex
	baseURL    string
	resolveErr error
	images     []StoredImage
	listErr    error
	assignErr  error
	assignHook func()
	// storedAs, when set, rewrites the path the way the backend persists it
	storedAs func(string) string

	resolved []string
	listed   int
	assigned map[uint]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		baseURL:  "https://storage.test/",
		assigned: make(map[uint]string),
	}
}

func (s *fakeStorage) ResolveURL(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, path)
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return s.baseURL + path, nil
}

func (s *fakeStorage) ListStoredImages(ctx context.Context, prefix string) ([]StoredImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]StoredImage(nil), s.images...), nil
}

func (s *fakeStorage) AssignCover(ctx context.Context, itemID uint, path string) (string, error) {
	s.mu.Lock()
	hook := s.assignHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignErr != nil {
		return "", s.assignErr
	}
	if s.storedAs != nil {
		path = s.storedAs(path)
	}
	s.assigned[itemID] = path
	return path, nil
}

func (s *fakeStorage) setAssignErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignErr = err
}

type fakeMirror struct {
	mu    sync.Mutex
	hits  map[string]bool
	err   error
	calls []string
}

func (m *fakeMirror) Probe(ctx context.Context, slug string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, slug)
	if m.err != nil {
		return "", m.err
	}
	if m.hits[slug] {
		return "https://mirror.test/" + slug + ".jpg", nil
	}
	return "", nil
}

func (m *fakeMirror) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type searchCall struct {
	title, author string
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]string
	err     error
	calls   []searchCall
}

func (s *fakeSearcher) SearchCover(ctx context.Context, title, author string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, searchCall{title: title, author: author})
	if s.err != nil {
		return "", s.err
	}
	return s.results[title], nil
}

func (s *fakeSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type staticAuth bool

func (a staticAuth) CanOverrideCovers(ctx context.Context) bool {
	return bool(a)
}

var errTransport = errors.New("connection reset by peer")

func strPtr(s string) *string {
	return &s
}
