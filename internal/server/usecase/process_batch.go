package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"telegram-script-bridge/internal/adapters/source"
	"telegram-script-bridge/internal/cache"
	"telegram-script-bridge/internal/core/services"
	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/pkg/config"
	"telegram-script-bridge/internal/ports"
)

// ProcessBatchUseCase инкапсулирует бизнес-логику обработки пакета обновлений:
// разбор, дозагрузка записей о собеседниках и прогон сообщений через скрипт.
type ProcessBatchUseCase struct {
	cfg         *config.Config
	parser      ports.Parser
	directory   ports.DirectoryService
	runner      ports.ScriptRunner
	peerStore   *cache.PeerStore
	resultStore *cache.ResultStore
}

// NewProcessBatchUseCase создает новый экземпляр ProcessBatchUseCase.
func NewProcessBatchUseCase(
	cfg *config.Config,
	parser ports.Parser,
	directory ports.DirectoryService,
	runner ports.ScriptRunner,
	peerStore *cache.PeerStore,
	resultStore *cache.ResultStore,
) *ProcessBatchUseCase {
	return &ProcessBatchUseCase{
		cfg:         cfg,
		parser:      parser,
		directory:   directory,
		runner:      runner,
		peerStore:   peerStore,
		resultStore: resultStore,
	}
}

// ProcessFiles обрабатывает несколько файлов пакетов обновлений.
// Результаты для уже виденного набора файлов отдаются из кеша.
func (uc *ProcessBatchUseCase) ProcessFiles(ctx context.Context, filePaths []string) ([]domain.ScriptResult, error) {
	var fileHashes []string

	for _, filePath := range filePaths {
		fileHash, err := cache.CalculateFileHash(filePath)
		if err != nil {
			return nil, fmt.Errorf("не удалось вычислить хеш файла %s: %w", filePath, err)
		}
		fileHashes = append(fileHashes, fileHash)
	}

	// Создание единого хеша для набора файлов
	combinedHash := cache.CalculateHashFromString(fmt.Sprintf("%v", fileHashes))

	// Проверка кеша по единому хешу
	if cachedItem, found := uc.resultStore.Get(combinedHash); found {
		slog.Info("Попадание в кеш для набора файлов", "hash", combinedHash)
		return cachedItem.Data, nil
	}

	var allResults []domain.ScriptResult
	for _, filePath := range filePaths {
		slog.Info("Обработка файла", "path", filePath)

		ds := source.NewCliSource(filePath)
		data, err := ds.Fetch()
		if err != nil {
			return nil, fmt.Errorf("не удалось извлечь данные из %s: %w", filePath, err)
		}

		results, err := uc.ProcessData(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("не удалось обработать пакет из %s: %w", filePath, err)
		}

		allResults = append(allResults, results...)
	}

	// Кеширование окончательного результата
	ttl := time.Duration(uc.cfg.Processing.CacheTTLMinutes) * time.Minute
	uc.resultStore.Put(combinedHash, allResults, ttl)
	slog.Info("Результат кеширован для набора файлов", "hash", combinedHash, "ttl", ttl.String())

	slog.Info("Обработка успешно завершена", "result_count", len(allResults))
	return allResults, nil
}

// ProcessData обрабатывает один пакет обновлений: разбирает его, заполняет
// хранилище записей, дозагружает недостающие записи через Telegram API и
// вызывает скриптовый обработчик для каждого сообщения.
func (uc *ProcessBatchUseCase) ProcessData(ctx context.Context, data []byte) ([]domain.ScriptResult, error) {
	msgs, peers, err := uc.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать пакет: %w", err)
	}
	slog.Info("Разобран пакет обновлений", "message_count", len(msgs), "peer_count", len(peers))

	// Встроенные в пакет записи имеют приоритет над данными из API.
	for _, rec := range peers {
		uc.peerStore.Put(rec)
	}

	// Дозагрузка записей, на которые пакет ссылается, но не содержит.
	refs := services.PeerReferences(msgs, peers)
	missing := uc.peerStore.Missing(refs)
	if len(missing) > 0 {
		slog.Info("Дозагрузка записей о собеседниках", "count", len(missing))
		records, err := uc.directory.ResolveAll(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("не удалось дозагрузить записи о собеседниках: %w", err)
		}
		for _, rec := range records {
			uc.peerStore.Put(rec)
		}
	}

	results := make([]domain.ScriptResult, 0, len(msgs))
	for _, msg := range msgs {
		output, err := uc.runner.OnMessage(msg, uc.peerStore)
		if err != nil {
			if domain.Fatal(err) {
				return nil, fmt.Errorf("обработка сообщения %d прервана: %w", msg.ID, err)
			}
			// Ошибка внутри обработчика касается одного сообщения, остальные обрабатываем дальше.
			slog.Warn("Обработчик завершился с ошибкой, сообщение пропущено", "message_id", msg.ID, "error", err)
			continue
		}

		results = append(results, domain.ScriptResult{
			MessageID: strconv.FormatInt(msg.ID, 10),
			Output:    output,
		})
	}

	return results, nil
}
