package sitecms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eringen/sitecms/content"
)

// PageCache serves published documents to the public site.
type PageCache interface {
	// Get returns the published document, loading it on a miss.
	Get(ctx context.Context, resource, id string) (content.Document, error)
	// List returns every published document.
	List(ctx context.Context) ([]content.Document, error)
	// Invalidate drops the document and the published list.
	Invalidate(ctx context.Context, resource, id string)
}

func cacheKey(resource, id string) string {
	return resource + "/" + id
}

type cachedPage struct {
	doc     content.Document
	fetched time.Time
}

// MemoryCache is an in-memory PageCache with TTL.
type MemoryCache struct {
	mu          sync.RWMutex
	pages       map[string]cachedPage
	list        []content.Document
	listFetched time.Time
	ttl         time.Duration
	store       *Store
	now         func() time.Time
}

// NewMemoryCache creates a MemoryCache backed by the given Store.
func NewMemoryCache(s *Store, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		pages: make(map[string]cachedPage),
		ttl:   ttl,
		store: s,
		now:   time.Now,
	}
}

func (c *MemoryCache) fresh(t time.Time) bool {
	return !t.IsZero() && c.now().Sub(t) < c.ttl
}

// Get returns a published document. It tries the read lock first and only
// takes the write lock when a reload is needed.
func (c *MemoryCache) Get(ctx context.Context, resource, id string) (content.Document, error) {
	key := cacheKey(resource, id)
	c.mu.RLock()
	p, ok := c.pages[key]
	if ok && c.fresh(p.fetched) {
		c.mu.RUnlock()
		return p.doc.Clone(), nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pages[key]; ok && c.fresh(p.fetched) {
		return p.doc.Clone(), nil
	}
	doc, err := c.store.GetPublished(ctx, resource, id)
	if err != nil {
		delete(c.pages, key)
		return content.Document{}, err
	}
	c.pages[key] = cachedPage{doc: doc, fetched: c.now()}
	return doc.Clone(), nil
}

// List returns every published document.
func (c *MemoryCache) List(ctx context.Context) ([]content.Document, error) {
	c.mu.RLock()
	if c.list != nil && c.fresh(c.listFetched) {
		list := cloneDocs(c.list)
		c.mu.RUnlock()
		return list, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.list != nil && c.fresh(c.listFetched) {
		return cloneDocs(c.list), nil
	}
	docs, err := c.store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []content.Document{}
	}
	c.list = docs
	c.listFetched = c.now()
	return cloneDocs(docs), nil
}

func cloneDocs(docs []content.Document) []content.Document {
	out := make([]content.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

// Invalidate clears the document and the list so the next read reloads them.
func (c *MemoryCache) Invalidate(_ context.Context, resource, id string) {
	c.mu.Lock()
	delete(c.pages, cacheKey(resource, id))
	c.list = nil
	c.mu.Unlock()
}

// RedisCache is a PageCache shared by every server instance through Redis.
// Redis failures fall back to the store.
type RedisCache struct {
	client *redis.Client
	store  *Store
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db).
func NewRedisCache(ctx context.Context, url string, s *Store, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCacheFromClient(client, s, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, s *Store, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, store: s, ttl: ttl, prefix: "sitecms:"}
}

func (c *RedisCache) pageKey(resource, id string) string {
	return c.prefix + "page:" + cacheKey(resource, id)
}

func (c *RedisCache) listKey() string {
	return c.prefix + "published"
}

// genKey is bumped on every invalidation of key. Fills watch it so a value
// read from the store before an invalidation is never written back.
func (c *RedisCache) genKey(key string) string {
	return c.prefix + "gen:" + key
}

func (c *RedisCache) Get(ctx context.Context, resource, id string) (content.Document, error) {
	key := c.pageKey(resource, id)
	if b, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var doc content.Document
		if json.Unmarshal(b, &doc) == nil {
			return doc, nil
		}
	}
	var doc content.Document
	err := c.fill(ctx, key, func() (any, error) {
		var err error
		doc, err = c.store.GetPublished(ctx, resource, id)
		return doc, err
	})
	if err != nil {
		return content.Document{}, err
	}
	return doc, nil
}

func (c *RedisCache) List(ctx context.Context) ([]content.Document, error) {
	b, err := c.client.Get(ctx, c.listKey()).Bytes()
	if err == nil {
		var docs []content.Document
		if json.Unmarshal(b, &docs) == nil {
			return docs, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// unreachable Redis: serve from the store
		return c.store.ListPublished(ctx)
	}
	var docs []content.Document
	err = c.fill(ctx, c.listKey(), func() (any, error) {
		var err error
		docs, err = c.store.ListPublished(ctx)
		if docs == nil {
			docs = []content.Document{}
		}
		return docs, err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// fill runs load and caches its result under key inside a WATCH on the
// key's generation. An Invalidate that lands while load runs aborts the
// write; the caller still gets the loaded value. Redis errors are not
// returned, only load's.
func (c *RedisCache) fill(ctx context.Context, key string, load func() (any, error)) error {
	loaded := false
	var loadErr error
	_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
		loaded = true
		v, err := load()
		if err != nil {
			loadErr = err
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, c.genKey(key))
	if !loaded {
		_, loadErr = load()
	}
	return loadErr
}

func (c *RedisCache) Invalidate(ctx context.Context, resource, id string) {
	page := c.pageKey(resource, id)
	_, _ = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, page, c.listKey())
		p.Incr(ctx, c.genKey(page))
		p.Incr(ctx, c.genKey(c.listKey()))
		return nil
	})
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
