// Package store persists user-scoped viewer preferences in a bbolt database:
// the mimetype display order and per-output mimetype picks survive daemon
// restarts.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDisplayOrder = []byte("display_order")
	bucketPicks        = []byte("mimetype_picks")
	bucketViewerState  = []byte("viewer_state")
	keyUserOrder       = []byte("user_order")
	keyViewerState     = []byte("state")
)

// ViewerState remembers where the presentation surface left off.
type ViewerState struct {
	LastURI       string `json:"last_uri,omitempty"`
	ScrollOffset  int    `json:"scroll_offset,omitempty"`
	SelectedCell  int    `json:"selected_cell,omitempty"`
	UpdatedAtUnix int64  `json:"updated_at_unix,omitempty"`
}

// PrefsStore is the on-disk preference database.
type PrefsStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func Open(path string) (*PrefsStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("prefs db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PrefsStore{db: db}, nil
}

func initSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDisplayOrder); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketPicks); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketViewerState); err != nil {
			return err
		}
		return nil
	})
}

func (s *PrefsStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveUserOrder stores the user-layer mimetype ordering.
func (s *PrefsStore) SaveUserOrder(patterns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(normalizePatterns(patterns))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDisplayOrder)
		if b == nil {
			return errors.New("display order bucket missing")
		}
		return b.Put(keyUserOrder, raw)
	})
}

// LoadUserOrder returns the stored ordering, or nil when none was saved.
func (s *PrefsStore) LoadUserOrder() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDisplayOrder)
		if b == nil {
			return nil
		}
		raw := b.Get(keyUserOrder)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SavePickedMimeType remembers which candidate the user picked for one
// output, keyed by document URI, cell handle, and output index.
func (s *PrefsStore) SavePickedMimeType(uri string, cellHandle, outputIndex, candidateIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(uri) == "" {
		return errors.New("uri is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPicks)
		if b == nil {
			return errors.New("picks bucket missing")
		}
		return b.Put(pickKey(uri, cellHandle, outputIndex), []byte(strconv.Itoa(candidateIndex)))
	})
}

// LoadPickedMimeType returns the remembered candidate index for one output.
func (s *PrefsStore) LoadPickedMimeType(uri string, cellHandle, outputIndex int) (int, bool, error) {
	var (
		index int
		ok    bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPicks)
		if b == nil {
			return nil
		}
		raw := b.Get(pickKey(uri, cellHandle, outputIndex))
		if len(raw) == 0 {
			return nil
		}
		parsed, err := strconv.Atoi(string(raw))
		if err != nil {
			return err
		}
		index = parsed
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return index, ok, nil
}

// DeleteDocumentPicks drops every remembered pick for one document, used
// when a notebook closes for good.
func (s *PrefsStore) DeleteDocumentPicks(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := documentPickPrefix(uri)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPicks)
		if b == nil {
			return errors.New("picks bucket missing")
		}
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveViewerState persists the last viewer position.
func (s *PrefsStore) SaveViewerState(state *ViewerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil {
		return errors.New("state is required")
	}
	copyState := *state
	copyState.UpdatedAtUnix = time.Now().Unix()
	raw, err := json.Marshal(&copyState)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketViewerState)
		if b == nil {
			return errors.New("viewer state bucket missing")
		}
		return b.Put(keyViewerState, raw)
	})
}

// LoadViewerState returns the persisted viewer position, zero-valued when
// nothing was saved yet.
func (s *PrefsStore) LoadViewerState() (*ViewerState, error) {
	state := &ViewerState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketViewerState)
		if b == nil {
			return nil
		}
		raw := b.Get(keyViewerState)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		out = append(out, pattern)
	}
	return out
}

func documentPickPrefix(uri string) []byte {
	return []byte(strings.TrimSpace(uri) + "\x00")
}

func pickKey(uri string, cellHandle, outputIndex int) []byte {
	return []byte(strings.TrimSpace(uri) + "\x00" + strconv.Itoa(cellHandle) + "\x00" + strconv.Itoa(outputIndex))
}
