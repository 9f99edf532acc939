package luabind

import (
	"strconv"

	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/ports"
)

// PushMessage строит на вершине стека таблицу сообщения. Собеседники
// (отправитель, получатель, источник пересылки) разрешаются через resolver
// на момент вызова; состояние между вызовами не сохраняется.
func (s *Sink) PushMessage(msg *domain.Message, resolver ports.PeerResolver) error {
	if msg == nil {
		return domain.Invariantf("nil message")
	}

	if err := s.Reserve(10); err != nil {
		return err
	}
	s.BeginMap()

	// Идентификатор кодируется строкой: 64 бита не помещаются в Lua-число
	// без потери точности.
	if err := s.StringField("id", strconv.FormatInt(msg.ID, 10)); err != nil {
		return err
	}
	if err := s.NumberField("flags", float64(msg.Flags)); err != nil {
		return err
	}

	// Метаданные пересылки записываются только парой: либо fwd_from и
	// fwd_date вместе, либо ни одного.
	if msg.FwdFrom.Known() {
		if err := s.peerField("fwd_from", msg.FwdFrom, resolver); err != nil {
			return err
		}
		if err := s.NumberField("fwd_date", float64(msg.FwdDate)); err != nil {
			return err
		}
	}

	if err := s.peerField("from", msg.From, resolver); err != nil {
		return err
	}
	if err := s.peerField("to", msg.To, resolver); err != nil {
		return err
	}

	if err := s.BoolField("out", msg.Out); err != nil {
		return err
	}
	if err := s.BoolField("unread", msg.Unread); err != nil {
		return err
	}
	if err := s.NumberField("date", float64(msg.Date)); err != nil {
		return err
	}
	if err := s.BoolField("service", msg.Service); err != nil {
		return err
	}

	// Тело передается байт-в-байт, включая нулевые байты; у сервисных
	// сообщений текст не записывается даже при непустом теле.
	if !msg.Service && len(msg.Text) > 0 {
		if err := s.StringField("text", string(msg.Text)); err != nil {
			return err
		}
	}

	if msg.Media != nil {
		if err := s.Reserve(2); err != nil {
			return err
		}
		if err := s.PushMedia(msg.Media); err != nil {
			return err
		}
		s.SetField("media")
	}

	return nil
}

// peerField записывает вложенную проекцию собеседника как поле name.
func (s *Sink) peerField(name string, id domain.PeerID, resolver ports.PeerResolver) error {
	if err := s.Reserve(2); err != nil {
		return err
	}
	var rec *domain.PeerRecord
	if resolver != nil {
		rec = resolver.Resolve(id)
	}
	if err := s.PushPeer(id, rec, resolver); err != nil {
		return err
	}
	s.SetField(name)
	return nil
}
