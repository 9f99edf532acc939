package luabind

import (
	"testing"

	"github.com/Shopify/go-lua"
	"github.com/stretchr/testify/require"

	"telegram-script-bridge/internal/domain"
)

// mapResolver — тестовая реализация ports.PeerResolver поверх мапы.
type mapResolver map[domain.PeerID]*domain.PeerRecord

func (r mapResolver) Resolve(id domain.PeerID) *domain.PeerRecord {
	return r[id]
}

// newTestSink создает чистое состояние Lua и Sink поверх него.
func newTestSink(t *testing.T) *Sink {
	t.Helper()
	state := lua.NewState()
	require.NotNil(t, state)
	return NewSink(state)
}

// popTable снимает таблицу с вершины стека в map[string]any.
func popTable(t *testing.T, s *Sink) map[string]any {
	t.Helper()
	require.Equal(t, lua.TypeTable, s.State().TypeOf(-1), "на вершине стека ожидалась таблица")
	out := TableToMap(s.State(), -1)
	s.State().Pop(1)
	return out
}
