package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"telegram-script-bridge/internal/domain"
)

// ResultItem представляет кэшированный результат прогона скрипта.
type ResultItem struct {
	Data      []domain.ScriptResult
	ExpiresAt time.Time
}

// ResultStore управляет хранением результатов прогона скрипта по хешу
// набора входных файлов.
type ResultStore struct {
	cache map[string]*ResultItem
	mutex sync.RWMutex
}

// NewResultStore создает новый экземпляр ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{
		cache: make(map[string]*ResultItem),
	}
}

// Get извлекает кэшированный результат по его ключу (хешу).
func (rs *ResultStore) Get(key string) (*ResultItem, bool) {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()

	item, exists := rs.cache[key]
	if !exists || time.Now().After(item.ExpiresAt) {
		// Элемент не существует или срок его действия истек
		return nil, false
	}

	return item, true
}

// Put сохраняет результат в кэш с указанным сроком действия.
func (rs *ResultStore) Put(key string, data []domain.ScriptResult, ttl time.Duration) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	rs.cache[key] = &ResultItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// CleanupExpired удаляет просроченные элементы из кэша.
func (rs *ResultStore) CleanupExpired() {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	now := time.Now()
	for key, item := range rs.cache {
		if now.After(item.ExpiresAt) {
			delete(rs.cache, key)
		}
	}
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов.
func (rs *ResultStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rs.CleanupExpired()
			}
		}
	}()
}

// CalculateFileHash вычисляет хеш SHA256 содержимого файла.
func CalculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("не удалось прочитать файл: %w", err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// CalculateHashFromString вычисляет хеш SHA256 строки.
func CalculateHashFromString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}
