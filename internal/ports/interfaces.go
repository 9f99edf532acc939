package ports

import (
	"context"

	"telegram-script-bridge/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных пакета обновлений.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для разбора файла пакета обновлений.
type Parser interface {
	// Parse преобразует сырые данные в сообщения и встроенные записи о собеседниках.
	Parse(data []byte) ([]*domain.Message, []*domain.PeerRecord, error)
}

// PeerResolver определяет интерфейс поиска записи о собеседнике.
// Возвращает nil для любого неизвестного идентификатора: отсутствие записи —
// не ошибка, проекция строит для такого собеседника заглушку.
type PeerResolver interface {
	Resolve(id domain.PeerID) *domain.PeerRecord
}

// DirectoryService определяет интерфейс для дозагрузки записей о собеседниках
// через Telegram API.
type DirectoryService interface {
	ResolveAll(ctx context.Context, ids []domain.PeerID) ([]*domain.PeerRecord, error)
}

// ScriptRunner определяет интерфейс для вызова Lua-обработчика на одном сообщении.
type ScriptRunner interface {
	OnMessage(msg *domain.Message, resolver PeerResolver) (any, error)
}

// Exporter определяет интерфейс для вывода результатов обработки пакета.
type Exporter interface {
	Export(results []domain.ScriptResult) error
}
