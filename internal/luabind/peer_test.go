package luabind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-script-bridge/internal/domain"
)

func TestPeerTypeLabel(t *testing.T) {
	t.Run("Известные теги стабильно разрешаются в метки", func(t *testing.T) {
		cases := map[domain.PeerType]string{
			domain.PeerTypeUser:       "user",
			domain.PeerTypeChat:       "chat",
			domain.PeerTypeSecretChat: "encr_chat",
		}
		for typ, want := range cases {
			// Повторный вызов обязан дать тот же результат.
			for i := 0; i < 2; i++ {
				got, err := typ.Label()
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		}
	})

	t.Run("Неизвестный тег — нарушение инварианта", func(t *testing.T) {
		_, err := domain.PeerType(42).Label()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)

		_, err = domain.PeerTypeNone.Label()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})
}

func TestPushPeer(t *testing.T) {
	t.Run("Незагруженный собеседник проецируется в заглушку", func(t *testing.T) {
		s := newTestSink(t)
		id := domain.PeerID{Type: domain.PeerTypeUser, ID: 42}
		require.NoError(t, s.PushPeer(id, nil, nil))

		out := popTable(t, s)
		assert.Len(t, out, 3, "заглушка содержит ровно id, type и print_name")
		assert.Equal(t, 42, out["id"])
		assert.Equal(t, "user", out["type"])
		assert.Equal(t, "user#42", out["print_name"])
	})

	t.Run("Запись с Loaded=false тоже дает заглушку, независимо от варианта", func(t *testing.T) {
		s := newTestSink(t)
		id := domain.PeerID{Type: domain.PeerTypeChat, ID: 7}
		rec := &domain.PeerRecord{ID: id, Loaded: false, Chat: &domain.ChatInfo{Title: "ignored"}}
		require.NoError(t, s.PushPeer(id, rec, nil))

		out := popTable(t, s)
		assert.Len(t, out, 3)
		assert.Equal(t, "chat#7", out["print_name"])
		_, exists := out["title"]
		assert.False(t, exists)
	})

	t.Run("Загруженный пользователь: пустые поля опускаются, непустые дословно", func(t *testing.T) {
		s := newTestSink(t)
		id := domain.PeerID{Type: domain.PeerTypeUser, ID: 9}
		rec := &domain.PeerRecord{
			ID:        id,
			Loaded:    true,
			PrintName: "Ann",
			Flags:     3,
			User: &domain.UserInfo{
				FirstName: "Ann",
				Phone:     "+100200",
			},
		}
		require.NoError(t, s.PushPeer(id, rec, nil))

		out := popTable(t, s)
		assert.Equal(t, 9, out["id"])
		assert.Equal(t, "user", out["type"])
		assert.Equal(t, "Ann", out["print_name"])
		assert.Equal(t, 3, out["flags"])
		assert.Equal(t, "Ann", out["first_name"])
		assert.Equal(t, "+100200", out["phone"])
		for _, omitted := range []string{"last_name", "real_first_name", "real_last_name"} {
			_, exists := out[omitted]
			assert.False(t, exists, "поле %s должно отсутствовать", omitted)
		}
	})

	t.Run("Загруженный чат", func(t *testing.T) {
		s := newTestSink(t)
		id := domain.PeerID{Type: domain.PeerTypeChat, ID: 100}
		rec := &domain.PeerRecord{
			ID:        id,
			Loaded:    true,
			PrintName: "Team",
			Flags:     0,
			Chat:      &domain.ChatInfo{Title: "Team", MembersCount: 5},
		}
		require.NoError(t, s.PushPeer(id, rec, nil))

		out := popTable(t, s)
		assert.Equal(t, map[string]any{
			"id":         100,
			"type":       "chat",
			"print_name": "Team",
			"flags":      0,
			"title":      "Team",
			"members_num": 5,
		}, out)
	})

	t.Run("Секретный чат вкладывает полную проекцию владельца", func(t *testing.T) {
		s := newTestSink(t)
		ownerID := domain.PeerID{Type: domain.PeerTypeUser, ID: 9}
		owner := &domain.PeerRecord{
			ID:        ownerID,
			Loaded:    true,
			PrintName: "Ann",
			Flags:     1,
			User:      &domain.UserInfo{FirstName: "Ann"},
		}
		resolver := mapResolver{ownerID: owner}

		secretID := domain.PeerID{Type: domain.PeerTypeSecretChat, ID: 7}
		rec := &domain.PeerRecord{
			ID:        secretID,
			Loaded:    true,
			PrintName: "!Ann",
			Flags:     2,
			Secret:    &domain.SecretChatInfo{UserID: ownerID},
		}
		require.NoError(t, s.PushPeer(secretID, rec, resolver))
		got := popTable(t, s)

		// Эталон: самостоятельная проекция владельца.
		require.NoError(t, s.PushPeer(ownerID, owner, resolver))
		want := popTable(t, s)

		assert.Equal(t, "encr_chat", got["type"])
		assert.Equal(t, 7, got["id"])
		assert.Equal(t, want, got["user"])
	})

	t.Run("Владелец секретного чата вне хранилища дает вложенную заглушку", func(t *testing.T) {
		s := newTestSink(t)
		secretID := domain.PeerID{Type: domain.PeerTypeSecretChat, ID: 7}
		rec := &domain.PeerRecord{
			ID:     secretID,
			Loaded: true,
			Secret: &domain.SecretChatInfo{UserID: domain.PeerID{Type: domain.PeerTypeUser, ID: 9}},
		}
		require.NoError(t, s.PushPeer(secretID, rec, mapResolver{}))

		out := popTable(t, s)
		nested, ok := out["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "user#9", nested["print_name"])
	})

	t.Run("Секретный чат, принадлежащий секретному чату, — нарушение инварианта", func(t *testing.T) {
		s := newTestSink(t)
		secretID := domain.PeerID{Type: domain.PeerTypeSecretChat, ID: 7}
		rec := &domain.PeerRecord{
			ID:     secretID,
			Loaded: true,
			Secret: &domain.SecretChatInfo{UserID: domain.PeerID{Type: domain.PeerTypeSecretChat, ID: 8}},
		}
		err := s.PushPeer(secretID, rec, mapResolver{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})

	t.Run("Неизвестный тег идентификатора — нарушение инварианта", func(t *testing.T) {
		s := newTestSink(t)
		err := s.PushPeer(domain.PeerID{Type: domain.PeerType(99), ID: 1}, nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})
}
