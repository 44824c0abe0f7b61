package cache

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	storePrefix = "s:"
	entryPrefix = "e:"
	// separates the store name from the entry key
	entrySeparator = "\x00"
)

// LevelDBStorage keeps stores in a LevelDB directory.
// Store names live under "s:<name>" with their creation sequence as value,
// entries under "e:<name>\x00<key>".
type LevelDBStorage struct {
	db *leveldb.DB

	mu  sync.Mutex
	seq int64
}

type leveldbStore struct {
	s    *LevelDBStorage
	name string
}

func NewLevelDBStorage(path string) (*LevelDBStorage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	s := &LevelDBStorage{db: db}
	// continue the creation sequence where the previous run left off
	it := db.NewIterator(util.BytesPrefix([]byte(storePrefix)), nil)
	defer it.Release()
	for it.Next() {
		if seq, err := strconv.ParseInt(string(it.Value()), 10, 64); err == nil && seq > s.seq {
			s.seq = seq
		}
	}
	if err := it.Error(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *LevelDBStorage) Open(_ context.Context, name string) (Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	has, err := s.db.Has([]byte(storePrefix+name), nil)
	if err != nil {
		return nil, err
	}
	if !has {
		s.seq++
		if err := s.db.Put([]byte(storePrefix+name), []byte(strconv.FormatInt(s.seq, 10)), nil); err != nil {
			return nil, err
		}
	}
	return &leveldbStore{s: s, name: name}, nil
}

func (s *LevelDBStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	has, err := s.db.Has([]byte(storePrefix+name), nil)
	if err != nil || !has {
		return false, err
	}
	batch := new(leveldb.Batch)
	batch.Delete([]byte(storePrefix + name))
	it := s.db.NewIterator(util.BytesPrefix(entryKeyPrefix(name)), nil)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return false, err
	}
	if err := s.db.Write(batch, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (s *LevelDBStorage) Names(_ context.Context) ([]string, error) {
	type named struct {
		name string
		seq  int64
	}
	items := make([]named, 0)
	it := s.db.NewIterator(util.BytesPrefix([]byte(storePrefix)), nil)
	defer it.Release()
	for it.Next() {
		seq, _ := strconv.ParseInt(string(it.Value()), 10, 64)
		items = append(items, named{
			name: string(bytes.TrimPrefix(it.Key(), []byte(storePrefix))),
			seq:  seq,
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].seq < items[j].seq
	})
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.name)
	}
	return names, nil
}

func (s *LevelDBStorage) Close() error {
	return s.db.Close()
}

func entryKeyPrefix(name string) []byte {
	return []byte(entryPrefix + name + entrySeparator)
}

func (st *leveldbStore) Name() string {
	return st.name
}

func (st *leveldbStore) Get(_ context.Context, key string) (*Response, bool, error) {
	b, err := st.s.db.Get(append(entryKeyPrefix(st.name), key...), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	res, err := decodeResponse(b)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (st *leveldbStore) Put(_ context.Context, key string, res *Response) error {
	stored := *res
	stored.StoredAt = time.Now()
	b, err := encodeResponse(&stored)
	if err != nil {
		return err
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	has, err := st.s.db.Has([]byte(storePrefix+st.name), nil)
	if err != nil {
		return err
	}
	if !has {
		return ErrStoreDeleted
	}
	return st.s.db.Put(append(entryKeyPrefix(st.name), key...), b, nil)
}

func (st *leveldbStore) Keys(_ context.Context, cb func(string)) error {
	prefix := entryKeyPrefix(st.name)
	it := st.s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		cb(string(bytes.TrimPrefix(it.Key(), prefix)))
	}
	return it.Error()
}
