// Package luabind проецирует доменные сущности (собеседники, сообщения,
// вложения) в Lua-таблицы на стеке встроенного интерпретатора.
package luabind

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"telegram-script-bridge/internal/domain"
)

// Sink — контекст построения дерева значений поверх стека lua.State.
// Он передается явно через все проекторы; у стека ровно один активный
// писатель, одновременные вызовы должны сериализоваться вызывающей стороной.
type Sink struct {
	state *lua.State
}

// NewSink создает Sink поверх готового состояния Lua.
func NewSink(state *lua.State) *Sink {
	return &Sink{state: state}
}

// State возвращает состояние Lua, которым владеет Sink.
func (s *Sink) State() *lua.State {
	return s.state
}

// Reserve гарантирует наличие n свободных слотов стека перед серией push-ей.
// Неудача означает ошибку статического расчета размера у вызывающей стороны
// и возвращается как ErrCapacityExceeded; восстанавливаться после нее нельзя.
func (s *Sink) Reserve(n int) error {
	if !s.state.CheckStack(n) {
		return fmt.Errorf("reserve %d lua stack slots: %w", n, domain.ErrCapacityExceeded)
	}
	return nil
}

// BeginMap начинает новую вложенную карту (пустую Lua-таблицу) на вершине стека.
func (s *Sink) BeginMap() {
	s.state.NewTable()
}

// SetField закрепляет значение с вершины стека как поле name таблицы под ним.
func (s *Sink) SetField(name string) {
	s.state.SetField(-2, name)
}

// PushString кладет строку на вершину стека. Строка передается байт-в-байт:
// go-lua не обрезает ее по встроенным нулевым байтам.
func (s *Sink) PushString(v string) {
	s.state.PushString(v)
}

// PushNumber кладет число на вершину стека.
func (s *Sink) PushNumber(v float64) {
	s.state.PushNumber(v)
}

// PushBoolean кладет булево значение на вершину стека.
func (s *Sink) PushBoolean(v bool) {
	s.state.PushBoolean(v)
}
