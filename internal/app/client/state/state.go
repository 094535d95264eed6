// Package state хранит токен и отметки последней синхронизации в JSON файле.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// PullLayout - машинный формат отметки последней выгрузки (UTC).
	PullLayout = "2006-01-02 15:04:05"
	// DisplayLayout - формат для вывода пользователю.
	DisplayLayout = "02 Jan 2006 15:04"

	fileMode = 0600
)

type State struct {
	Token           string `json:"token,omitempty"`
	LastPull        string `json:"last_pull,omitempty"`
	LastPullDisplay string `json:"last_pull_display,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load читает файл. Отсутствующий файл - пустое состояние.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	var st State

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read state: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

func (s *Store) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fn(&st)
	return s.write(st)
}

// write: временный файл рядом и rename, чтобы не оставить файл наполовину записанным.
func (s *Store) write(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (s *Store) Token() (string, error) {
	st, err := s.Load()
	return st.Token, err
}

func (s *Store) SetToken(token string) error {
	return s.update(func(st *State) { st.Token = token })
}

func (s *Store) ClearToken() error {
	return s.SetToken("")
}

// LastPull - время последней успешной выгрузки; нулевое, если ее не было.
func (s *Store) LastPull() (time.Time, error) {
	st, err := s.Load()
	if err != nil || st.LastPull == "" {
		return time.Time{}, err
	}

	t, err := time.ParseInLocation(PullLayout, st.LastPull, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last pull %q: %w", st.LastPull, err)
	}
	return t, nil
}

func (s *Store) SetLastPull(t time.Time) error {
	t = t.UTC()
	return s.update(func(st *State) {
		st.LastPull = t.Format(PullLayout)
		st.LastPullDisplay = t.Format(DisplayLayout)
	})
}

// ResetLastPull заставляет следующую выгрузку быть полной.
func (s *Store) ResetLastPull() error {
	return s.update(func(st *State) {
		st.LastPull = ""
		st.LastPullDisplay = ""
	})
}
