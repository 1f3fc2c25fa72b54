package identity

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

const (
	KeySkinIndex = "mp-skin-index"
	KeyName      = "mp-player-name"
)

// Store 本地键值持久化
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Prefs 本地玩家的皮肤与名字偏好
type Prefs struct {
	store Store
}

func NewPrefs(store Store) *Prefs {
	return &Prefs{store: store}
}

// SkinIndex 已保存的皮肤索引，缺失或无法解析时为 0
func (p *Prefs) SkinIndex() int {
	v, err := p.store.Get(KeySkinIndex)
	if err != nil {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0
	}
	return i
}

func (p *Prefs) SetSkinIndex(i int) error {
	if err := p.store.Set(KeySkinIndex, strconv.Itoa(i)); err != nil {
		return fmt.Errorf("save skin index: %w", err)
	}
	return nil
}

// Name 已保存的显示名
func (p *Prefs) Name() string {
	v, err := p.store.Get(KeyName)
	if err != nil {
		return ""
	}
	return v
}

// SetName 规范化后保存，返回实际保存的名字
func (p *Prefs) SetName(raw string) (string, error) {
	name := SanitizeName(raw)
	if err := p.store.Set(KeyName, name); err != nil {
		return "", fmt.Errorf("save name: %w", err)
	}
	return name, nil
}

// MemoryStore 内存实现
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchKey, key)
	}
	return v, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// IsMissing 判断是否为键不存在
func IsMissing(err error) bool {
	return errors.Is(err, ErrNoSuchKey)
}
