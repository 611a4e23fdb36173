package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResponseCache holds recent completions keyed by provider and final prompt.
type ResponseCache struct {
	lru *expirable.LRU[string, Completion]
}

func NewResponseCache(size int, ttl time.Duration) *ResponseCache {
	if size <= 0 {
		size = 512
	}
	return &ResponseCache{lru: expirable.NewLRU[string, Completion](size, nil, ttl)}
}

func (c *ResponseCache) Get(providerName, prompt string) (Completion, bool) {
	return c.lru.Get(cacheKey(providerName, prompt))
}

func (c *ResponseCache) Add(providerName, prompt string, completion Completion) {
	c.lru.Add(cacheKey(providerName, prompt), completion)
}

func (c *ResponseCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry and reports how many were held.
func (c *ResponseCache) Purge() int {
	n := c.lru.Len()
	c.lru.Purge()
	return n
}

func cacheKey(providerName, prompt string) string {
	sum := sha256.Sum256([]byte(normalize(providerName) + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
