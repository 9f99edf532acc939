package luabind

import "telegram-script-bridge/internal/domain"

// StringField записывает строковое поле name в строящуюся на вершине стека карту.
// Пустое значение молча пропускается: отсутствующий ключ для потребителя
// означает «неизвестно/пусто» и никогда не является ошибкой.
func (s *Sink) StringField(name, value string) error {
	if name == "" {
		return domain.Invariantf("empty string field name")
	}
	if value == "" {
		return nil
	}
	if err := s.Reserve(2); err != nil {
		return err
	}
	s.state.PushString(value)
	s.state.SetField(-2, name)
	return nil
}

// NumberField записывает числовое поле name. В отличие от строк, числа
// записываются всегда: ноль и отрицательные значения значимы.
func (s *Sink) NumberField(name string, value float64) error {
	if name == "" {
		return domain.Invariantf("empty number field name")
	}
	if err := s.Reserve(2); err != nil {
		return err
	}
	s.state.PushNumber(value)
	s.state.SetField(-2, name)
	return nil
}

// BoolField записывает булево поле name. Записывается всегда.
func (s *Sink) BoolField(name string, value bool) error {
	if name == "" {
		return domain.Invariantf("empty boolean field name")
	}
	if err := s.Reserve(2); err != nil {
		return err
	}
	s.state.PushBoolean(value)
	s.state.SetField(-2, name)
	return nil
}
