package luabind

import "telegram-script-bridge/internal/domain"

// unknownMediaLabel — плейсхолдер для вложений, вид которых этому коду
// не знаком. Набор видов растет со временем, падать на новом виде нельзя.
const unknownMediaLabel = "???"

// PushMedia строит на вершине стека значение вложения: голую строку-метку
// для простых видов либо таблицу для geo и contact.
func (s *Sink) PushMedia(m domain.Media) error {
	if err := s.Reserve(4); err != nil {
		return err
	}

	switch media := m.(type) {
	case domain.MediaPhoto, domain.MediaVideo, domain.MediaAudio, domain.MediaDocument, domain.MediaUnsupported:
		s.PushString(string(m.Kind()))
		return nil
	case domain.MediaGeo:
		s.BeginMap()
		if err := s.NumberField("longitude", media.Longitude); err != nil {
			return err
		}
		return s.NumberField("latitude", media.Latitude)
	case domain.MediaContact:
		s.BeginMap()
		if err := s.StringField("phone", media.Phone); err != nil {
			return err
		}
		if err := s.StringField("first_name", media.FirstName); err != nil {
			return err
		}
		if err := s.StringField("last_name", media.LastName); err != nil {
			return err
		}
		return s.NumberField("user_id", float64(media.UserID))
	default:
		s.PushString(unknownMediaLabel)
		return nil
	}
}
