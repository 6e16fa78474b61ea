package rules

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	badger4 "github.com/ipfs/go-ds-badger4"
)

// Store is the rule persistence interface the decision engine depends on.
// Absent rules are (nil, nil); errors are store failures only.
type Store interface {
	// Find returns the rule matching the exact (shop, listType, type, value)
	// tuple, or nil.
	Find(ctx context.Context, shop, listType, ruleType, value string) (*AccessRule, error)
	// FindByValues returns the first rule whose value is in values, or nil.
	FindByValues(ctx context.Context, shop, listType, ruleType string, values []string) (*AccessRule, error)
	// List returns every rule on a shop's list.
	List(ctx context.Context, shop, listType string) ([]*AccessRule, error)
	// Get returns the rule with the given id, or nil.
	Get(ctx context.Context, shop, listType, id string) (*AccessRule, error)
	// Create inserts a rule; ErrDuplicate when the tuple already exists.
	Create(ctx context.Context, rule *AccessRule) error
	// Update rewrites an existing rule; ErrNotFound when absent.
	Update(ctx context.Context, rule *AccessRule) error
	// Delete removes a rule by id; ErrNotFound when absent.
	Delete(ctx context.Context, shop, listType, id string) error

	Close() error
}

var (
	// ErrNotFound is returned for operations on absent rules.
	ErrNotFound = errors.New("rule not found")
	// ErrDuplicate is returned when a (shop, listType, type, value) tuple
	// already holds a rule.
	ErrDuplicate = errors.New("rule already exists")
)

const keyPrefix = "/rules"

// DocumentStore keeps rules as JSON documents in a go-datastore, keyed
// /rules/<shop>/<listType>/<type>/<id>.
type DocumentStore struct {
	ds datastore.Datastore
}

// NewStore wraps an existing datastore.
func NewStore(ds datastore.Datastore) *DocumentStore {
	return &DocumentStore{ds: ds}
}

// NewMemoryStore creates a store backed by an in-process map. Used in
// tests and when no datadir is configured.
func NewMemoryStore() *DocumentStore {
	return NewStore(dssync.MutexWrap(datastore.NewMapDatastore()))
}

// NewBadgerStore creates a store persisted under path.
func NewBadgerStore(path string) (*DocumentStore, error) {
	ds, err := badger4.NewDatastore(path, nil)
	if err != nil {
		return nil, err
	}
	return NewStore(ds), nil
}

func ruleKey(rule *AccessRule) datastore.Key {
	return datastore.NewKey(keyPrefix + "/" + rule.Shop + "/" + rule.ListType + "/" + typeSlug(rule.Type) + "/" + rule.ID)
}

func typePrefix(shop, listType, ruleType string) string {
	return keyPrefix + "/" + shop + "/" + listType + "/" + typeSlug(ruleType)
}

func listPrefix(shop, listType string) string {
	return keyPrefix + "/" + shop + "/" + listType
}

// scan walks every rule under prefix, stopping when fn returns false.
func (s *DocumentStore) scan(ctx context.Context, prefix string, fn func(*AccessRule) bool) error {
	results, err := s.ds.Query(ctx, dsq.Query{Prefix: prefix})
	if err != nil {
		return err
	}
	defer results.Close()

	for r := range results.Next() {
		if r.Error != nil {
			return r.Error
		}
		var rule AccessRule
		if err := json.Unmarshal(r.Entry.Value, &rule); err != nil {
			// Skip documents that no longer decode; they are unreachable
			// through the API anyway.
			continue
		}
		if !fn(&rule) {
			return nil
		}
	}
	return nil
}

// Find implements Store.
func (s *DocumentStore) Find(ctx context.Context, shop, listType, ruleType, value string) (*AccessRule, error) {
	return s.FindByValues(ctx, shop, listType, ruleType, []string{value})
}

// FindByValues implements Store.
func (s *DocumentStore) FindByValues(ctx context.Context, shop, listType, ruleType string, values []string) (*AccessRule, error) {
	wanted := make(map[string]struct{}, len(values))
	for _, v := range values {
		wanted[v] = struct{}{}
	}

	var found *AccessRule
	err := s.scan(ctx, typePrefix(shop, listType, ruleType), func(rule *AccessRule) bool {
		if _, ok := wanted[rule.Value]; ok {
			found = rule
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// List implements Store.
func (s *DocumentStore) List(ctx context.Context, shop, listType string) ([]*AccessRule, error) {
	out := []*AccessRule{}
	err := s.scan(ctx, listPrefix(shop, listType), func(rule *AccessRule) bool {
		out = append(out, rule)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get implements Store.
func (s *DocumentStore) Get(ctx context.Context, shop, listType, id string) (*AccessRule, error) {
	var found *AccessRule
	err := s.scan(ctx, listPrefix(shop, listType), func(rule *AccessRule) bool {
		if rule.ID == id {
			found = rule
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Create implements Store. The duplicate check is read-then-write and
// therefore racy under concurrent creates for the same tuple; that gap
// is accepted.
func (s *DocumentStore) Create(ctx context.Context, rule *AccessRule) error {
	existing, err := s.Find(ctx, rule.Shop, rule.ListType, rule.Type, rule.Value)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	return s.put(ctx, rule)
}

// Update implements Store.
func (s *DocumentStore) Update(ctx context.Context, rule *AccessRule) error {
	existing, err := s.Get(ctx, rule.Shop, rule.ListType, rule.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	// An update must not land on a tuple another rule already holds.
	if existing.Type != rule.Type || existing.Value != rule.Value {
		holder, err := s.Find(ctx, rule.Shop, rule.ListType, rule.Type, rule.Value)
		if err != nil {
			return err
		}
		if holder != nil && holder.ID != rule.ID {
			return ErrDuplicate
		}
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	// The key embeds the type; drop the old document when it changed.
	if typeSlug(existing.Type) != typeSlug(rule.Type) {
		if err := s.ds.Delete(ctx, ruleKey(existing)); err != nil {
			return err
		}
	}
	return s.put(ctx, rule)
}

// Delete implements Store.
func (s *DocumentStore) Delete(ctx context.Context, shop, listType, id string) error {
	existing, err := s.Get(ctx, shop, listType, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return s.ds.Delete(ctx, ruleKey(existing))
}

// Close implements Store.
func (s *DocumentStore) Close() error {
	return s.ds.Close()
}

func (s *DocumentStore) put(ctx context.Context, rule *AccessRule) error {
	doc, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	return s.ds.Put(ctx, ruleKey(rule), doc)
}
