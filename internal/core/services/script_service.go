package services

import (
	"fmt"
	"log/slog"
	"sync"

	lua "github.com/Shopify/go-lua"

	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/luabind"
	"telegram-script-bridge/internal/ports"
)

// defaultHandlerName — имя Lua-функции, вызываемой для каждого сообщения,
// если конфигурация не задает другое.
const defaultHandlerName = "on_msg_receive"

// ScriptOption — функциональная опция для настройки ScriptService.
type ScriptOption func(*ScriptService)

// WithHandlerName устанавливает имя Lua-функции-обработчика.
func WithHandlerName(name string) ScriptOption {
	return func(s *ScriptService) {
		if name != "" {
			s.handler = name
		}
	}
}

// WithScriptLogger устанавливает логгер для сервиса.
func WithScriptLogger(l *slog.Logger) ScriptOption {
	return func(s *ScriptService) {
		if l != nil {
			s.log = l
		}
	}
}

// ScriptService владеет интерпретатором Lua и выполняет обработчик скрипта
// над проекциями сообщений. Интерпретатор не потокобезопасен, поэтому все
// обращения к нему сериализуются мьютексом.
type ScriptService struct {
	mu      sync.Mutex
	state   *lua.State
	sink    *luabind.Sink
	handler string
	log     *slog.Logger
}

// NewScriptService создает новый ScriptService со свежим состоянием Lua
// и загруженными стандартными библиотеками.
func NewScriptService(opts ...ScriptOption) *ScriptService {
	state := lua.NewState()
	lua.OpenLibraries(state)

	s := &ScriptService{
		state:   state,
		sink:    luabind.NewSink(state),
		handler: defaultHandlerName,
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LoadFile загружает и выполняет файл скрипта. Определенные в нем функции
// становятся доступными для последующих вызовов OnMessage.
func (s *ScriptService) LoadFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := lua.DoFile(s.state, path); err != nil {
		return fmt.Errorf("failed to load script %q: %w", path, err)
	}

	s.log.Info("Script loaded", "path", path, "handler", s.handler)
	return nil
}

// LoadString загружает и выполняет скрипт из строки.
func (s *ScriptService) LoadString(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := lua.DoString(s.state, src); err != nil {
		return fmt.Errorf("failed to load inline script: %w", err)
	}
	return nil
}

// OnMessage проецирует сообщение в Lua-таблицу и вызывает обработчик с ней
// в качестве единственного аргумента. Возвращаемое обработчиком значение
// конвертируется обратно в Go-представление.
func (s *ScriptService) OnMessage(msg *domain.Message, resolver ports.PeerResolver) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Запоминаем вершину стека, чтобы вернуть интерпретатор в исходное
	// состояние независимо от исхода вызова.
	top := s.state.Top()

	s.state.Global(s.handler)
	if s.state.TypeOf(-1) != lua.TypeFunction {
		s.state.SetTop(top)
		return nil, fmt.Errorf("script does not define handler function %q", s.handler)
	}

	if err := s.sink.PushMessage(msg, resolver); err != nil {
		s.state.SetTop(top)
		return nil, fmt.Errorf("failed to project message: %w", err)
	}

	if err := s.state.ProtectedCall(1, 1, 0); err != nil {
		s.state.SetTop(top)
		s.log.Warn("Script handler failed", "handler", s.handler, "message_id", msg.ID, "error", err)
		return nil, fmt.Errorf("script handler %q failed: %w", s.handler, err)
	}

	result := luabind.ToGo(s.state, -1)
	s.state.SetTop(top)

	return result, nil
}
