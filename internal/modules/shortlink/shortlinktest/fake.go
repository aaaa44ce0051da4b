// Package shortlinktest provides an in-memory shortlink.API.
package shortlinktest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/modules/shortlink"
)

// ErrUnavailable is returned while the fake is failing.
var ErrUnavailable = errors.New("shortlinktest: service unavailable")

// Fake records calls and mints sequential codes.
type Fake struct {
	mu          sync.Mutex
	links       map[string]shortlink.Link
	createCalls int
	deleted     []string
	seq         int
	FailCreate  bool
	FailDelete  bool
	Configs     []models.ShortlinkConfig
}

func New() *Fake {
	return &Fake{links: make(map[string]shortlink.Link)}
}

// Factory returns a shortlink.Factory that records each config and hands out f.
func (f *Fake) Factory() shortlink.Factory {
	return func(cfg models.ShortlinkConfig) shortlink.API {
		f.mu.Lock()
		f.Configs = append(f.Configs, cfg)
		f.mu.Unlock()
		return f
	}
}

func (f *Fake) Create(ctx context.Context, longURL, customCode string, expiresInHours int) (*shortlink.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.FailCreate {
		return nil, ErrUnavailable
	}
	code := customCode
	if code == "" {
		f.seq++
		code = fmt.Sprintf("c%d", f.seq)
	}
	if _, exists := f.links[code]; exists {
		return nil, fmt.Errorf("shortlinktest: code %q taken", code)
	}
	link := shortlink.Link{ShortCode: code, ShortURL: "https://s.test/" + code, OriginalURL: longURL}
	f.links[code] = link
	return &link, nil
}

func (f *Fake) Delete(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, code)
	if f.FailDelete {
		return ErrUnavailable
	}
	delete(f.links, code)
	return nil
}

func (f *Fake) Info(ctx context.Context, code string) (*shortlink.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[code]
	if !ok {
		return nil, &shortlink.StatusError{Status: 404}
	}
	return &link, nil
}

func (f *Fake) List(ctx context.Context) ([]shortlink.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]shortlink.Link, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, l)
	}
	return out, nil
}

// CreateCalls reports how many times Create ran.
func (f *Fake) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

// Deleted lists the codes passed to Delete.
func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Has reports whether code is live.
func (f *Fake) Has(code string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.links[code]
	return ok
}
