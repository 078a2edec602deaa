package archive

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"AssetWarden/internal/snapshot"
)

// ErrNotFound is returned when no snapshot is archived for a pull request.
var ErrNotFound = errors.New("snapshot not archived")

// Archive stores recorded pull request snapshots in Pebble, keyed by
// repository, pull request number and head commit. Values are zstd JSON.
type Archive struct {
	db *pebble.DB // db is the underlying Pebble database
}

// Open opens or creates an archive at path.
func Open(path string) (*Archive, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20), // 8 MB cache
		MemTableSize: 4 << 20,                  // 4 MB memtable
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open archive %s:\n%w", path, err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// prefix returns the key prefix of every snapshot of one pull request.
// The number is zero-padded so keys sort numerically.
func prefix(owner, repo string, number int) []byte {
	return []byte(fmt.Sprintf("pr/%s/%s/%010d/", owner, repo, number))
}

// key returns the key of one snapshot.
func key(s *snapshot.Snapshot) []byte {
	return append(prefix(s.Owner, s.Repo, s.PullRequest.Number), s.PullRequest.HeadSHA...)
}

// Put stores s, replacing any snapshot of the same head commit.
func (a *Archive) Put(s *snapshot.Snapshot) error {
	data, err := snapshot.Encode(s)
	if err != nil {
		return err
	}

	compressed, err := snapshot.Compress(data)
	if err != nil {
		return err
	}

	if err := a.db.Set(key(s), compressed, pebble.Sync); err != nil {
		return fmt.Errorf("store snapshot:\n%w", err)
	}

	return nil
}

// Get returns the snapshot of a pull request at a head commit.
func (a *Archive) Get(owner, repo string, number int, head string) (*snapshot.Snapshot, error) {
	k := append(prefix(owner, repo, number), head...)

	value, closer, err := a.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s#%d@%s", ErrNotFound, owner, repo, number, head)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot:\n%w", err)
	}

	// Copy the value since it's invalid after closer.Close()
	data := make([]byte, len(value))
	copy(data, value)
	closer.Close()

	return decode(data)
}

// Latest returns the most recently fetched snapshot of a pull request.
func (a *Archive) Latest(owner, repo string, number int) (*snapshot.Snapshot, error) {
	var latest *snapshot.Snapshot

	err := a.each(prefix(owner, repo, number), func(s *snapshot.Snapshot) error {
		if latest == nil || s.FetchedAt.After(latest.FetchedAt) {
			latest = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if latest == nil {
		return nil, fmt.Errorf("%w: %s/%s#%d", ErrNotFound, owner, repo, number)
	}

	return latest, nil
}

// Heads lists the archived head commits of a pull request in key order.
func (a *Archive) Heads(owner, repo string, number int) ([]string, error) {
	var heads []string

	err := a.each(prefix(owner, repo, number), func(s *snapshot.Snapshot) error {
		heads = append(heads, s.PullRequest.HeadSHA)
		return nil
	})

	return heads, err
}

// each decodes every snapshot under p in key order.
func (a *Archive) each(p []byte, fn func(*snapshot.Snapshot) error) error {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: p,
		UpperBound: prefixUpperBound(p),
	})
	if err != nil {
		return fmt.Errorf("iterate archive:\n%w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		s, err := decode(value)
		if err != nil {
			return fmt.Errorf("snapshot %s:\n%w", iter.Key(), err)
		}

		if err := fn(s); err != nil {
			return err
		}
	}

	return iter.Error()
}

// decode decompresses and parses an archived value.
func decode(value []byte) (*snapshot.Snapshot, error) {
	data, err := snapshot.Decompress(value)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	return snapshot.Decode(data)
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}
