package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/greenscout/scout-engine/pkg/types"
)

var (
	ErrNotFound    = errors.New("product not found")
	ErrDuplicateID = errors.New("duplicate product id")
)

// EventKind identifies a catalog change
type EventKind int

const (
	ProductAdded EventKind = iota
	ProductUpdated
	ProductDeleted
)

func (k EventKind) String() string {
	switch k {
	case ProductAdded:
		return "added"
	case ProductUpdated:
		return "updated"
	case ProductDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event describes one change to the catalog. For deletions Product holds the
// removed value.
type Event struct {
	Kind    EventKind
	Product Product
}

// subscriberBuffer is the per-subscriber channel capacity. Events are dropped
// for subscribers that fall this far behind.
const subscriberBuffer = 16

// Catalog is the process-wide product collection. Every mutation replaces
// the whole collection in the backing store while holding the lock.
type Catalog struct {
	mu       sync.RWMutex
	store    Store
	products map[string]Product
	subs     map[int]chan Event
	nextSub  int
	logger   zerolog.Logger
}

// New creates a catalog backed by store and loads its current contents
func New(store Store) (*Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: catalog store is required", types.ErrInvalidInput)
	}

	loaded, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	products := make(map[string]Product, len(loaded))
	for _, p := range loaded {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid product %q in store: %w", p.ID, err)
		}
		if _, dup := products[p.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		products[p.ID] = p.Clone()
	}

	return &Catalog{
		store:    store,
		products: products,
		subs:     make(map[int]chan Event),
		logger:   zerolog.Nop(),
	}, nil
}

// WithLogger sets the logger used by the catalog
func (c *Catalog) WithLogger(logger zerolog.Logger) *Catalog {
	c.logger = logger.With().Str("component", "catalog").Logger()
	return c
}

// Add validates p and inserts it. An empty id is replaced with a new uuid.
func (c *Catalog) Add(p Product) (Product, error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.products[p.ID]; exists {
		return Product{}, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}

	c.products[p.ID] = p
	if err := c.persistLocked(); err != nil {
		delete(c.products, p.ID)
		return Product{}, err
	}

	c.logger.Debug().Str("id", p.ID).Str("name", p.Name).Msg("product added")
	c.publishLocked(Event{Kind: ProductAdded, Product: p.Clone()})
	return p.Clone(), nil
}

// Update replaces the product with the same id
func (c *Catalog) Update(p Product) (Product, error) {
	if p.ID == "" {
		return Product{}, fmt.Errorf("%w: product id is required for update", types.ErrInvalidInput)
	}
	p = p.Clone()
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, exists := c.products[p.ID]
	if !exists {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}

	c.products[p.ID] = p
	if err := c.persistLocked(); err != nil {
		c.products[p.ID] = prev
		return Product{}, err
	}

	c.logger.Debug().Str("id", p.ID).Msg("product updated")
	c.publishLocked(Event{Kind: ProductUpdated, Product: p.Clone()})
	return p.Clone(), nil
}

// Delete removes the product with the given id
func (c *Catalog) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, exists := c.products[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(c.products, id)
	if err := c.persistLocked(); err != nil {
		c.products[id] = prev
		return err
	}

	c.logger.Debug().Str("id", id).Msg("product deleted")
	c.publishLocked(Event{Kind: ProductDeleted, Product: prev.Clone()})
	return nil
}

// Get returns the product with the given id
func (c *Catalog) Get(id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

// Find returns the first product whose name matches case-insensitively
func (c *Catalog) Find(name string) (Product, error) {
	for _, p := range c.List() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// List returns all products sorted by name, then id
func (c *Catalog) List() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.Clone())
	}
	sortProducts(out)
	return out
}

// Len returns the number of products
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Subscribe returns a channel receiving every subsequent change and a
// function that cancels the subscription and closes the channel.
func (c *Catalog) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, subscriberBuffer)
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Catalog) publishLocked(ev Event) {
	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Warn().Int("subscriber", id).Str("event", ev.Kind.String()).Msg("subscriber is full, dropping event")
		}
	}
}

func (c *Catalog) persistLocked() error {
	all := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		all = append(all, p)
	}
	sortProducts(all)
	if err := c.store.Save(all); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	return nil
}

func sortProducts(ps []Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}
