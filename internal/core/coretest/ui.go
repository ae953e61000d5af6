package coretest

import "sync"

type Navigator struct {
	mu     sync.Mutex
	Routes []string
}

func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Routes = append(n.Routes, route)
}

func (n *Navigator) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Routes)
}

type Toast struct {
	Level string
	Msg   string
}

type Notifier struct {
	mu     sync.Mutex
	Toasts []Toast
}

func (n *Notifier) Success(msg string) { n.add("success", msg) }
func (n *Notifier) Info(msg string)    { n.add("info", msg) }
func (n *Notifier) Error(msg string)   { n.add("error", msg) }

func (n *Notifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Toasts = append(n.Toasts, Toast{Level: level, Msg: msg})
}

// Count returns how many toasts of level were shown.
func (n *Notifier) Count(level string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, t := range n.Toasts {
		if t.Level == level {
			c++
		}
	}
	return c
}

// Store is a map-backed core.LocalStore.
type Store struct {
	mu   sync.Mutex
	data map[string]string
}

func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
