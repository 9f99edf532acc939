package integration

import (
	"context"

	"telegram-script-bridge/internal/domain"
)

// mockDirectoryService — замена сервиса дозагрузки, чтобы не ходить в реальный API.
// Возвращает заранее подготовленные записи для запрошенных идентификаторов.
type mockDirectoryService struct {
	records map[domain.PeerID]*domain.PeerRecord
	calls   [][]domain.PeerID
}

func newMockDirectoryService(records ...*domain.PeerRecord) *mockDirectoryService {
	m := &mockDirectoryService{records: make(map[domain.PeerID]*domain.PeerRecord)}
	for _, rec := range records {
		m.records[rec.ID] = rec
	}
	return m
}

func (m *mockDirectoryService) ResolveAll(_ context.Context, ids []domain.PeerID) ([]*domain.PeerRecord, error) {
	m.calls = append(m.calls, ids)

	var out []*domain.PeerRecord
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
