package usecase

import (
	"context"
	"errors"
	"sync"

	"portfolio-chat/internal/domain"
)

// SiteLoader supplies the portfolio variant the service answers for.
type SiteLoader interface {
	LoadSite(ctx context.Context) (domain.Site, error)
}

// SiteCache loads the site once per process and derives the system
// instruction from it. A failed load is retried on the next call.
type SiteCache struct {
	loader SiteLoader

	mu                sync.RWMutex
	loaded            bool
	site              domain.Site
	systemInstruction string
}

func NewSiteCache(loader SiteLoader) (*SiteCache, error) {
	if loader == nil {
		return nil, errors.New("usecase: site loader must not be nil")
	}
	return &SiteCache{loader: loader}, nil
}

// Site returns the cached site, loading it on first use.
func (c *SiteCache) Site(ctx context.Context) (domain.Site, error) {
	if err := c.ensure(ctx); err != nil {
		return domain.Site{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.site, nil
}

// SystemInstruction returns the instruction sent with every chat turn.
func (c *SiteCache) SystemInstruction(ctx context.Context) (string, error) {
	if err := c.ensure(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemInstruction, nil
}

func (c *SiteCache) ensure(ctx context.Context) error {
	c.mu.RLock()
	if c.loaded {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	site, err := c.loader.LoadSite(ctx)
	if err != nil {
		return err
	}
	instruction, err := buildSystemInstruction(site)
	if err != nil {
		return err
	}

	c.site = site
	c.systemInstruction = instruction
	c.loaded = true
	return nil
}
