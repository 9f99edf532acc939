package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/ports"
)

// ErrPeerNotResolved - терминальная ошибка, указывающая, что собеседник не может быть найден.
var ErrPeerNotResolved = errors.New("peer not resolvable")

// Config хранит конфигурацию для DirectoryService.
type Config struct {
	// TotalTimeout — максимальная продолжительность обработки всего списка идентификаторов.
	TotalTimeout time.Duration
	// OperationTimeout — таймаут для одного вызова Telegram API.
	OperationTimeout time.Duration
	// PoolSize — количество одновременных воркеров.
	PoolSize int
	// ClientRetryPause — продолжительность паузы перед повторной попыткой получить клиент от роутера.
	ClientRetryPause time.Duration
}

// Option — функциональная опция для настройки DirectoryService.
type Option func(*DirectoryService)

// WithTotalTimeout устанавливает общий таймаут для процесса дозагрузки.
func WithTotalTimeout(d time.Duration) Option {
	return func(s *DirectoryService) {
		s.config.TotalTimeout = d
	}
}

// WithOperationTimeout устанавливает таймаут для одной операции API.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *DirectoryService) {
		s.config.OperationTimeout = d
	}
}

// WithPoolSize устанавливает количество одновременных воркеров.
func WithPoolSize(n int) Option {
	return func(s *DirectoryService) {
		if n > 0 {
			s.config.PoolSize = n
		}
	}
}

// WithClientRetryPause устанавливает длительность паузы между повторными попытками получения клиента.
func WithClientRetryPause(d time.Duration) Option {
	return func(s *DirectoryService) {
		s.config.ClientRetryPause = d
	}
}

// WithLogger устанавливает логгер для сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(s *DirectoryService) {
		if l != nil {
			s.log = l
		}
	}
}

// DirectoryService дозагружает записи о собеседниках через Telegram API.
// Сервис не хранит состояние и безопасен для одновременного использования.
type DirectoryService struct {
	router ports.Router
	config Config
	log    *slog.Logger
}

// NewDirectoryService создает новый DirectoryService с использованием функциональных опций.
// Он начинает с конфигурации по умолчанию, которая может быть переопределена предоставленными опциями.
func NewDirectoryService(r ports.Router, opts ...Option) *DirectoryService {
	// Конфигурация по умолчанию.
	s := &DirectoryService{
		router: r,
		config: Config{
			TotalTimeout:     10 * time.Minute,
			OperationTimeout: 5 * time.Second,
			PoolSize:         1,
			ClientRetryPause: 1 * time.Second,
		},
		log: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// resolveResult — вспомогательная структура для передачи результатов от воркеров.
type resolveResult struct {
	record *domain.PeerRecord
	err    error
	isSet  bool // Отличает успешную дозагрузку от случая, когда собеседник не был найден.
}

// ResolveAll обрабатывает список идентификаторов и возвращает загруженные записи.
// Идентификаторы, которые не удалось разрешить, пропускаются: проекция построит
// для них заглушку. Секретные чаты — локальные сущности и через API не разрешаются.
func (s *DirectoryService) ResolveAll(ctx context.Context, ids []domain.PeerID) ([]*domain.PeerRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// Дедупликация списка идентификаторов; незаданные пропускаем сразу.
	seen := make(map[domain.PeerID]struct{}, len(ids))
	uniqueIDs := make([]domain.PeerID, 0, len(ids))
	for _, id := range ids {
		if !id.Known() {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniqueIDs = append(uniqueIDs, id)
		}
	}

	if len(uniqueIDs) < len(ids) {
		s.log.InfoContext(ctx, "Removed duplicate peer ids", "original_count", len(ids), "unique_count", len(uniqueIDs))
	}
	ids = uniqueIDs

	// После дедупликации может не остаться идентификаторов для обработки.
	if len(ids) == 0 {
		return nil, nil
	}

	cfg := s.config // Используем конфигурацию, заданную при создании сервиса

	ctx, cancel := context.WithTimeout(ctx, cfg.TotalTimeout)
	defer cancel()

	s.log.InfoContext(ctx, "Starting peer resolution process",
		"peers", len(ids),
		"pool_size", cfg.PoolSize,
		"total_timeout", cfg.TotalTimeout,
	)

	tasks := make(chan domain.PeerID, len(ids))
	results := make(chan resolveResult, len(ids))
	var wg sync.WaitGroup

	for i := 0; i < cfg.PoolSize; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, &cfg, tasks, results)
	}

	for _, id := range ids {
		tasks <- id
	}

	resolvedMap := make(map[domain.PeerID]*domain.PeerRecord, len(ids))
	var processingErrors []error
	finishedCount := 0

	for finishedCount < len(ids) {
		select {
		case res := <-results:
			if res.err != nil {
				// Это терминальная ошибка (скорее всего, таймаут), задача завершена с ошибкой.
				processingErrors = append(processingErrors, res.err)
			} else if res.isSet {
				resolvedMap[res.record.ID] = res.record
			}
			finishedCount++
		case <-ctx.Done():
			// Глобальный таймаут сработал, пока мы ждали результатов.
			records := collectRecords(resolvedMap)

			err := fmt.Errorf("peer resolution timed out: %w", ctx.Err())
			s.log.WarnContext(ctx, "Peer resolution timed out", "resolved_count", len(records), "error", err)
			// Прекращаем ждать и возвращаем то, что успели собрать.
			return records, err
		}
	}

	// Все задачи получили терминальный статус (успех или ошибка).
	// Теперь можно безопасно закрыть канал задач, чтобы воркеры завершились.
	close(tasks)
	wg.Wait()
	close(results)

	records := collectRecords(resolvedMap)

	if len(processingErrors) > 0 {
		return records, errors.Join(processingErrors...)
	}

	s.log.InfoContext(ctx, "Peer resolution finished successfully", "resolved_count", len(records))
	return records, nil
}

func collectRecords(m map[domain.PeerID]*domain.PeerRecord) []*domain.PeerRecord {
	records := make([]*domain.PeerRecord, 0, len(m))
	for _, rec := range m {
		records = append(records, rec)
	}
	return records
}

func (s *DirectoryService) worker(ctx context.Context, wg *sync.WaitGroup, cfg *Config, tasks chan domain.PeerID, results chan<- resolveResult) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Глобальный контекст завершен, выходим.
			return
		case id, ok := <-tasks:
			if !ok {
				// Канал задач закрыт, больше работы нет.
				return
			}

			record, err := s.resolvePeer(ctx, cfg, id)
			if err != nil {
				// Проверяем, является ли ошибка терминальной (например, собеседник не найден).
				if errors.Is(err, ErrPeerNotResolved) {
					s.log.DebugContext(ctx, "Peer could not be resolved, skipping", "peer", id, "error", err)
					// Это не ошибка всего процесса, а просто неудача для одного идентификатора.
					// Отправляем пустой результат, чтобы счетчик в ResolveAll уменьшился.
					results <- resolveResult{isSet: false}
				} else if ctx.Err() != nil {
					// Глобальный контекст отменен, это терминальная ошибка для воркера.
					s.log.WarnContext(ctx, "Failed to resolve peer due to context cancellation", "peer", id, "error", err)
					results <- resolveResult{err: err}
				} else {
					// Любая другая ошибка считается временной, перемещаем задачу в конец очереди.
					s.log.WarnContext(ctx, "Re-queueing peer due to transient error", "peer", id, "error", err)
					tasks <- id
				}
				continue
			}

			// Успех, отправляем результат.
			results <- resolveResult{record: record, isSet: true}
		}
	}
}

func (s *DirectoryService) resolvePeer(ctx context.Context, cfg *Config, id domain.PeerID) (*domain.PeerRecord, error) {
	switch id.Type {
	case domain.PeerTypeUser:
		return s.resolveUser(ctx, cfg, id)
	case domain.PeerTypeChat:
		return s.resolveChat(ctx, cfg, id)
	case domain.PeerTypeSecretChat:
		// Состояние секретного чата живет только в локальной базе клиента.
		return nil, fmt.Errorf("%w: secret chat state is local to the client", ErrPeerNotResolved)
	}
	return nil, fmt.Errorf("%w: unknown peer type %d", ErrPeerNotResolved, id.Type)
}

func (s *DirectoryService) resolveUser(ctx context.Context, cfg *Config, id domain.PeerID) (*domain.PeerRecord, error) {
	s.log.DebugContext(ctx, "Executing UsersGetUsers", "user_id", id.ID)
	logArgs := []any{"operation", "UsersGetUsers", "user_id", id.ID}
	res, err := s.executeOperation(ctx, cfg, logArgs, func(ctx context.Context, cl ports.TelegramClient) (any, error) {
		return cl.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: int64(id.ID)}})
	})
	if err != nil {
		s.log.WarnContext(ctx, "resolveUser executeOperation failed", "user_id", id.ID, "error", err)
		return nil, err
	}
	if res == nil {
		err := errors.New("resolve user returned no result")
		s.log.ErrorContext(ctx, "Unexpected nil result from API", "user_id", id.ID, "error", err)
		return nil, err
	}

	users, ok := res.([]tg.UserClass)
	if !ok || len(users) == 0 {
		err := fmt.Errorf("%w: user not found by ID", ErrPeerNotResolved)
		s.log.DebugContext(ctx, "Could not resolve user by ID", "user_id", id.ID, "error", err)
		return nil, err
	}
	tgUser, ok := users[0].(*tg.User)
	if !ok {
		err := errors.New("could not cast to user type")
		s.log.WarnContext(ctx, "Unexpected user type from resolution by ID", "user_id", id.ID, "user_type", fmt.Sprintf("%T", users[0]))
		return nil, err
	}

	return recordFromUser(id, tgUser), nil
}

func (s *DirectoryService) resolveChat(ctx context.Context, cfg *Config, id domain.PeerID) (*domain.PeerRecord, error) {
	s.log.DebugContext(ctx, "Executing MessagesGetChats", "chat_id", id.ID)
	logArgs := []any{"operation", "MessagesGetChats", "chat_id", id.ID}
	res, err := s.executeOperation(ctx, cfg, logArgs, func(ctx context.Context, cl ports.TelegramClient) (any, error) {
		return cl.MessagesGetChats(ctx, []int64{int64(id.ID)})
	})
	if err != nil {
		s.log.WarnContext(ctx, "resolveChat executeOperation failed", "chat_id", id.ID, "error", err)
		return nil, err
	}
	if res == nil {
		err := errors.New("resolve chat returned no result")
		s.log.ErrorContext(ctx, "Unexpected nil result from API", "chat_id", id.ID, "error", err)
		return nil, err
	}

	chats, ok := res.(tg.MessagesChatsClass)
	if !ok {
		err := errors.New("could not cast to chats type")
		s.log.WarnContext(ctx, "Unexpected type from chat resolution", "chat_id", id.ID, "type", fmt.Sprintf("%T", res))
		return nil, err
	}

	for _, chat := range chats.GetChats() {
		tgChat, ok := chat.(*tg.Chat)
		if !ok || tgChat.ID != int64(id.ID) {
			continue
		}
		return recordFromChat(id, tgChat), nil
	}

	err = fmt.Errorf("%w: chat not found by ID", ErrPeerNotResolved)
	s.log.DebugContext(ctx, "Could not resolve chat by ID", "chat_id", id.ID, "error", err)
	return nil, err
}

// recordFromUser собирает запись о пользователе из ответа API.
func recordFromUser(id domain.PeerID, u *tg.User) *domain.PeerRecord {
	rec := &domain.PeerRecord{
		ID:        id,
		Loaded:    true,
		PrintName: strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName)),
		User: &domain.UserInfo{
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Phone:     u.Phone,
		},
	}
	if u.Deleted {
		rec.Flags |= domain.PeerFlagDeleted
	}
	if u.Contact {
		rec.Flags |= domain.PeerFlagContact
	}
	return rec
}

// recordFromChat собирает запись о групповом чате из ответа API.
func recordFromChat(id domain.PeerID, c *tg.Chat) *domain.PeerRecord {
	return &domain.PeerRecord{
		ID:        id,
		Loaded:    true,
		PrintName: c.Title,
		Chat: &domain.ChatInfo{
			Title:        c.Title,
			MembersCount: int32(c.ParticipantsCount),
		},
	}
}

func (s *DirectoryService) executeOperation(ctx context.Context, cfg *Config, logArgs []any, fn func(ctx context.Context, cl ports.TelegramClient) (any, error)) (any, error) {
	// Внутренний цикл отвечает за получение клиента. Он "бесконечный", но ограничен родительским контекстом.
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.log.DebugContext(ctx, "Attempting to get a client from the router")
		apiClient, err := s.router.GetClient(ctx)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to get a client from the router, will retry", "error", err, "pause", cfg.ClientRetryPause)
			select {
			case <-time.After(cfg.ClientRetryPause):
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("не удалось получить клиент, так как контекст был отменен: %w", ctx.Err())
			}
		}

		s.log.DebugContext(ctx, "Obtained client successfully", "client_id", apiClient.ID())

		opCtx, opCancel := context.WithTimeout(ctx, cfg.OperationTimeout)
		res, opErr := fn(opCtx, apiClient)
		opCancel()

		// Добавляем client_id к уже существующим аргументам лога.
		finalLogArgs := append(logArgs, "client_id", apiClient.ID())

		if opErr == nil {
			s.log.DebugContext(ctx, "API operation executed successfully", finalLogArgs...)
			return res, nil // Успех
		}

		// Ошибка от операции возвращается вызывающей стороне, которая решит, что делать дальше (например, перепоставить задачу).
		finalLogArgs = append(finalLogArgs, "error", opErr)
		s.log.WarnContext(ctx, "API operation failed", finalLogArgs...)
		return nil, fmt.Errorf("операция API завершилась с ошибкой: %w", opErr)
	}
}
