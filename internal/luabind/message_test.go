package luabind

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-script-bridge/internal/domain"
)

func baseMessage() *domain.Message {
	return &domain.Message{
		ID:     1,
		Flags:  0,
		From:   domain.PeerID{Type: domain.PeerTypeUser, ID: 2},
		To:     domain.PeerID{Type: domain.PeerTypeChat, ID: 3},
		Out:    false,
		Unread: true,
		Date:   1700000000,
	}
}

func TestPushMessage(t *testing.T) {
	t.Run("Идентификатор кодируется строкой без потери точности", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		// Значение за границей точности double.
		msg.ID = 9007199254740993
		require.NoError(t, s.PushMessage(msg, nil))

		out := popTable(t, s)
		got, ok := out["id"].(string)
		require.True(t, ok, "id должен быть строкой")
		back, err := strconv.ParseInt(got, 10, 64)
		require.NoError(t, err)
		assert.Equal(t, int64(9007199254740993), back)
	})

	t.Run("Отправитель и получатель присутствуют всегда, хотя бы заглушками", func(t *testing.T) {
		s := newTestSink(t)
		require.NoError(t, s.PushMessage(baseMessage(), nil))

		out := popTable(t, s)
		from, ok := out["from"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "user#2", from["print_name"])

		to, ok := out["to"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "chat#3", to["print_name"])
	})

	t.Run("Метаданные пересылки записываются только парой", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		require.NoError(t, s.PushMessage(msg, nil))
		out := popTable(t, s)
		_, hasFrom := out["fwd_from"]
		_, hasDate := out["fwd_date"]
		assert.False(t, hasFrom)
		assert.False(t, hasDate)

		msg.FwdFrom = domain.PeerID{Type: domain.PeerTypeUser, ID: 5}
		msg.FwdDate = 1600000000
		require.NoError(t, s.PushMessage(msg, nil))
		out = popTable(t, s)
		fwd, ok := out["fwd_from"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 5, fwd["id"])
		assert.Equal(t, 1600000000, out["fwd_date"])
	})

	t.Run("Сервисное сообщение не несет текста даже при непустом теле", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		msg.Service = true
		msg.Text = []byte("joined the chat")
		require.NoError(t, s.PushMessage(msg, nil))

		out := popTable(t, s)
		assert.Equal(t, true, out["service"])
		_, exists := out["text"]
		assert.False(t, exists)
	})

	t.Run("Текст передается байт-в-байт, включая нулевой байт", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		msg.Text = []byte("he\x00llo")
		require.NoError(t, s.PushMessage(msg, nil))

		out := popTable(t, s)
		assert.Equal(t, "he\x00llo", out["text"])
	})

	t.Run("Скалярные поля сообщения", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		msg.Flags = 17
		msg.Out = true
		require.NoError(t, s.PushMessage(msg, nil))

		out := popTable(t, s)
		assert.Equal(t, 17, out["flags"])
		assert.Equal(t, true, out["out"])
		assert.Equal(t, true, out["unread"])
		assert.Equal(t, false, out["service"])
		assert.Equal(t, 1700000000, out["date"])
	})

	t.Run("Вложение записывается вложенным значением", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		msg.Media = domain.MediaGeo{Latitude: 1.5, Longitude: 2.5}
		require.NoError(t, s.PushMessage(msg, nil))

		out := popTable(t, s)
		media, ok := out["media"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 1.5, media["latitude"])
		assert.Equal(t, 2.5, media["longitude"])
	})

	t.Run("Вложение-метка записывается строкой", func(t *testing.T) {
		s := newTestSink(t)
		msg := baseMessage()
		msg.Media = domain.MediaPhoto{}
		require.NoError(t, s.PushMessage(msg, nil))

		out := popTable(t, s)
		assert.Equal(t, "photo", out["media"])
	})

	t.Run("Сообщение с загруженными собеседниками через resolver", func(t *testing.T) {
		s := newTestSink(t)
		fromID := domain.PeerID{Type: domain.PeerTypeUser, ID: 2}
		resolver := mapResolver{
			fromID: {
				ID:        fromID,
				Loaded:    true,
				PrintName: "Ann",
				User:      &domain.UserInfo{FirstName: "Ann"},
			},
		}
		require.NoError(t, s.PushMessage(baseMessage(), resolver))

		out := popTable(t, s)
		from, ok := out["from"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Ann", from["print_name"])
		assert.Equal(t, "Ann", from["first_name"])
	})

	t.Run("Nil-сообщение — нарушение инварианта", func(t *testing.T) {
		s := newTestSink(t)
		err := s.PushMessage(nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})
}
