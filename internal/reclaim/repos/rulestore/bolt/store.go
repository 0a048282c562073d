package bolt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
)

var (
	bucketRules = []byte("rules")
	bucketMeta  = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// bucketCreator is the subset of *bbolt.Tx used to create buckets.
type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

// ensureBucketsFn creates the required buckets; swapped in tests.
var ensureBucketsFn = func(tx bucketCreator) error {
	for _, name := range [][]byte{bucketRules, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("create bucket %s: %w", name, err)
		}
	}
	return nil
}

// boltStore implements rulestore.Store using bbolt. Each rule is one JSON
// record keyed by its ID.
type boltStore struct {
	db    *bbolt.DB
	clock clock.Clock
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string, clk clock.Clock) (rulestore.Store, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open rule db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error { return ensureBucketsFn(tx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db, clock: clk}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// List returns all rules ordered by creation time, then ID.
func (s *boltStore) List() ([]domain.SiteRule, error) {
	var rules []domain.SiteRule
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRules).ForEach(func(k, v []byte) error {
			r, err := rulestore.DecodeRule(v)
			if err != nil {
				return fmt.Errorf("rule %s: %w", k, err)
			}
			rules = append(rules, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

func (s *boltStore) Get(id string) (domain.SiteRule, error) {
	var (
		rule  domain.SiteRule
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRules).Get([]byte(id))
		if v == nil {
			return nil
		}
		r, err := rulestore.DecodeRule(v)
		if err != nil {
			return err
		}
		rule, found = r, true
		return nil
	})
	if err != nil {
		return domain.SiteRule{}, err
	}
	if !found {
		return domain.SiteRule{}, rulestore.ErrNotFound
	}
	return rule, nil
}

// Put inserts or replaces a rule. New rules get a random ID and the current
// time as CreatedAt.
func (s *boltStore) Put(r domain.SiteRule) (domain.SiteRule, error) {
	now := s.clock.Now()
	r = rulestore.Prepare(r, now)
	buf, err := rulestore.EncodeRule(r)
	if err != nil {
		return domain.SiteRule{}, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRules).Put([]byte(r.ID), buf); err != nil {
			return err
		}
		return bumpMeta(tx, now)
	})
	if err != nil {
		return domain.SiteRule{}, err
	}
	// round-trip so callers see exactly what a later Get returns
	return rulestore.DecodeRule(buf)
}

func (s *boltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRules)
		if b.Get([]byte(id)) == nil {
			return rulestore.ErrNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return bumpMeta(tx, s.clock.Now())
	})
}

func (s *boltStore) Stats() rulestore.StoreStats {
	st := rulestore.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRules); b != nil {
			st.Rules = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}

// bumpMeta increments the version counter and records the update time.
func bumpMeta(tx *bbolt.Tx, now time.Time) error {
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return errors.New("meta bucket missing")
	}
	var version uint64
	if v := b.Get(keyVersion); len(v) == 8 {
		version = binary.BigEndian.Uint64(v)
	}
	vbuf := make([]byte, 8)
	ubuf := make([]byte, 8)
	binary.BigEndian.PutUint64(vbuf, version+1)
	binary.BigEndian.PutUint64(ubuf, uint64(now.Unix()))
	if err := b.Put(keyVersion, vbuf); err != nil {
		return err
	}
	return b.Put(keyUpdated, ubuf)
}

// hasRule reports whether the raw key exists; used by tests.
func (s *boltStore) hasRule(id string) bool {
	var ok bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketRules).Get([]byte(id)) != nil
		return nil
	})
	return ok
}

var _ rulestore.Store = (*boltStore)(nil)
