// Package draft persists per-session compose drafts so text typed in the
// input box survives client restarts and session switches.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	draftDirName = "drafts"
	draftFileExt = ".json"
)

var (
	ErrDraftDirRequired  = errors.New("draft directory is required")
	ErrSessionIDRequired = errors.New("session id is required")
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrDraftNotFound     = errors.New("draft not found")
)

// Draft is the persisted compose state for one session.
type Draft struct {
	SessionID       string   `json:"session_id"`
	Text            string   `json:"text"`
	Attachments     []string `json:"attachments,omitempty"`
	Model           string   `json:"model,omitempty"`
	ThinkingEnabled bool     `json:"thinking_enabled,omitempty"`
	PlanModeEnabled bool     `json:"plan_mode_enabled,omitempty"`
	UpdatedAt       int64    `json:"updated_at"`
}

// Info describes one stored draft file.
type Info struct {
	SessionID string
	Path      string
	UpdatedAt time.Time
}

// Store persists drafts as one JSON file per session.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore constructs a draft store rooted at the state directory.
func NewStore(stateDir string) (*Store, error) {
	root := strings.TrimSpace(stateDir)
	if root == "" {
		return nil, ErrDraftDirRequired
	}
	return &Store{dir: filepath.Join(root, draftDirName)}, nil
}

// Save writes the draft for its session, replacing any previous draft.
// An empty draft deletes the file instead of storing it.
func (s *Store) Save(d Draft) error {
	path, err := s.draftPath(d.SessionID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(d.Text) == "" && len(d.Attachments) == 0 {
		return s.remove(path)
	}

	if d.UpdatedAt <= 0 {
		d.UpdatedAt = time.Now().Unix()
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create draft dir %s: %w", s.dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write draft file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace draft file %s: %w", path, err)
	}
	return nil
}

// Load reads the draft for one session.
func (s *Store) Load(sessionID string) (Draft, error) {
	path, err := s.draftPath(sessionID)
	if err != nil {
		return Draft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Draft{}, fmt.Errorf("%w: %s", ErrDraftNotFound, strings.TrimSpace(sessionID))
		}
		return Draft{}, fmt.Errorf("read draft file %s: %w", path, err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft file %s: %w", path, err)
	}
	return d, nil
}

// Delete removes the draft for one session. Missing drafts are not an error.
func (s *Store) Delete(sessionID string) error {
	path, err := s.draftPath(sessionID)
	if err != nil {
		return err
	}
	return s.remove(path)
}

// List returns stored drafts sorted by newest first.
func (s *Store) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read draft dir %s: %w", s.dir, err)
	}

	out := make([]Info, 0, len(items))
	for _, item := range items {
		if item.IsDir() || filepath.Ext(item.Name()) != draftFileExt {
			continue
		}

		info, err := item.Info()
		if err != nil {
			return nil, fmt.Errorf("read draft file info %s: %w", item.Name(), err)
		}

		out = append(out, Info{
			SessionID: strings.TrimSuffix(item.Name(), draftFileExt),
			Path:      filepath.Join(s.dir, item.Name()),
			UpdatedAt: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].SessionID > out[j].SessionID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove draft file %s: %w", path, err)
	}
	return nil
}

func (s *Store) draftPath(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrSessionIDRequired
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidSessionID, id)
	}
	return filepath.Join(s.dir, id+draftFileExt), nil
}
