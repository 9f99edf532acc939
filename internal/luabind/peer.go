package luabind

import (
	"fmt"

	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/ports"
)

// PushPeer строит на вершине стека таблицу собеседника.
// Если запись отсутствует или не загружена, таблица содержит только
// id, type и синтезированное print_name вида "user#42" — этого достаточно,
// чтобы скрипт мог сослаться на собеседника, не дожидаясь загрузки записи.
func (s *Sink) PushPeer(id domain.PeerID, rec *domain.PeerRecord, resolver ports.PeerResolver) error {
	label, err := id.Type.Label()
	if err != nil {
		return err
	}

	if err := s.Reserve(4); err != nil {
		return err
	}
	s.BeginMap()

	if err := s.NumberField("id", float64(id.ID)); err != nil {
		return err
	}
	if err := s.StringField("type", label); err != nil {
		return err
	}

	// Незагруженная запись всегда завершается до выбора варианта.
	if rec == nil || !rec.Loaded {
		return s.StringField("print_name", fmt.Sprintf("%s#%d", label, id.ID))
	}

	if err := s.StringField("print_name", rec.PrintName); err != nil {
		return err
	}
	if err := s.NumberField("flags", float64(rec.Flags)); err != nil {
		return err
	}

	switch id.Type {
	case domain.PeerTypeUser:
		return s.pushUserFields(rec)
	case domain.PeerTypeChat:
		return s.pushChatFields(rec)
	case domain.PeerTypeSecretChat:
		return s.pushSecretChatFields(rec, resolver)
	}
	// Тип уже прошел через Label, сюда попасть нельзя.
	return domain.Invariantf("unhandled peer type %d", int32(id.Type))
}

func (s *Sink) pushUserFields(rec *domain.PeerRecord) error {
	user := rec.User
	if user == nil {
		return domain.Invariantf("loaded user record %d has no user payload", rec.ID.ID)
	}
	if err := s.Reserve(4); err != nil {
		return err
	}
	if err := s.StringField("first_name", user.FirstName); err != nil {
		return err
	}
	if err := s.StringField("last_name", user.LastName); err != nil {
		return err
	}
	if err := s.StringField("real_first_name", user.RealFirstName); err != nil {
		return err
	}
	if err := s.StringField("real_last_name", user.RealLastName); err != nil {
		return err
	}
	return s.StringField("phone", user.Phone)
}

func (s *Sink) pushChatFields(rec *domain.PeerRecord) error {
	chat := rec.Chat
	if chat == nil {
		return domain.Invariantf("loaded chat record %d has no chat payload", rec.ID.ID)
	}
	if err := s.Reserve(4); err != nil {
		return err
	}
	if err := s.StringField("title", chat.Title); err != nil {
		return err
	}
	return s.NumberField("members_num", float64(chat.MembersCount))
}

// pushSecretChatFields записывает вложенное поле user с проекцией
// пользователя-владельца. Разрешается ровно один переход: владелец,
// который сам оказался секретным чатом, — это испорченные данные.
func (s *Sink) pushSecretChatFields(rec *domain.PeerRecord, resolver ports.PeerResolver) error {
	secret := rec.Secret
	if secret == nil {
		return domain.Invariantf("loaded secret chat record %d has no owner payload", rec.ID.ID)
	}
	if secret.UserID.Type == domain.PeerTypeSecretChat {
		return domain.Invariantf("secret chat %d is owned by another secret chat %d", rec.ID.ID, secret.UserID.ID)
	}
	if err := s.Reserve(4); err != nil {
		return err
	}
	var owner *domain.PeerRecord
	if resolver != nil {
		owner = resolver.Resolve(secret.UserID)
	}
	if err := s.PushPeer(secret.UserID, owner, resolver); err != nil {
		return err
	}
	s.SetField("user")
	return nil
}
