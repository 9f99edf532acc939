// Package cache содержит in-memory хранилища с TTL: записи о собеседниках
// и результаты выполнения скрипта по пакетам обновлений.
package cache

import (
	"context"
	"sync"
	"time"

	"telegram-script-bridge/internal/domain"
)

// peerItem — запись о собеседнике со сроком действия.
type peerItem struct {
	record    *domain.PeerRecord
	expiresAt time.Time
}

// PeerStore управляет записями о собеседниках. Реализует ports.PeerResolver:
// отсутствие записи — ожидаемая ситуация, а не ошибка.
type PeerStore struct {
	mutex sync.RWMutex
	peers map[domain.PeerID]*peerItem
	ttl   time.Duration
}

// NewPeerStore создает новый экземпляр PeerStore с заданным TTL записей.
func NewPeerStore(ttl time.Duration) *PeerStore {
	return &PeerStore{
		peers: make(map[domain.PeerID]*peerItem),
		ttl:   ttl,
	}
}

// Resolve возвращает запись по идентификатору либо nil, если записи нет
// или ее срок действия истек.
func (ps *PeerStore) Resolve(id domain.PeerID) *domain.PeerRecord {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	item, exists := ps.peers[id]
	if !exists || time.Now().After(item.expiresAt) {
		return nil
	}
	return item.record
}

// Put сохраняет запись о собеседнике. Nil и записи без идентификатора
// игнорируются.
func (ps *PeerStore) Put(rec *domain.PeerRecord) {
	if rec == nil || !rec.ID.Known() {
		return
	}
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.peers[rec.ID] = &peerItem{
		record:    rec,
		expiresAt: time.Now().Add(ps.ttl),
	}
}

// Missing возвращает идентификаторы из списка, для которых нет живой записи.
// Дубликаты схлопываются.
func (ps *PeerStore) Missing(ids []domain.PeerID) []domain.PeerID {
	seen := make(map[domain.PeerID]struct{}, len(ids))
	var missing []domain.PeerID
	for _, id := range ids {
		if !id.Known() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if ps.Resolve(id) == nil {
			missing = append(missing, id)
		}
	}
	return missing
}

// CleanupExpired удаляет просроченные записи.
func (ps *PeerStore) CleanupExpired() {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	now := time.Now()
	for id, item := range ps.peers {
		if now.After(item.expiresAt) {
			delete(ps.peers, id)
		}
	}
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных записей.
func (ps *PeerStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ps.CleanupExpired()
			}
		}
	}()
}
