package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"telegram-script-bridge/internal/cache"
	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/pkg/config"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// BatchProcessor определяет интерфейс для варианта использования, который обрабатывает пакеты обновлений.
type BatchProcessor interface {
	ProcessFiles(ctx context.Context, filePaths []string) ([]domain.ScriptResult, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer  *http.Server
	cfg         *config.Config
	taskStore   *TaskStore
	resultStore *cache.ResultStore
	processor   BatchProcessor
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor BatchProcessor, taskStore *TaskStore, resultStore *cache.ResultStore) (*Server, error) {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		// Работоспособность Telegram API проверяется при запуске клиентов.
		// Если сервер запущен, предполагается, что Telegram API в порядке.
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Конечная точка для запуска новой задачи обработки
		r.Post("/process", func(w http.ResponseWriter, r *http.Request) {
			// Разбор мультипарт-формы
			err := r.ParseMultipartForm(10 << 20) // максимум 10 MB
			if err != nil {
				http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
				return
			}

			fileHeaders := r.MultipartForm.File["file"]
			if len(fileHeaders) == 0 {
				http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
				return
			}

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Сохранение каждого загруженного пакета во временный файл
			tempDir := os.TempDir()
			tempFilePaths := make([]string, 0, len(fileHeaders))
			for i, fh := range fileHeaders {
				file, err := fh.Open()
				if err != nil {
					http.Error(w, "Не удалось открыть файл из формы", http.StatusBadRequest)
					return
				}

				tempFilePath := filepath.Join(tempDir, fmt.Sprintf("batch_%s_%d.json", taskID, i))
				out, err := os.Create(tempFilePath)
				if err != nil {
					file.Close()
					http.Error(w, "Не удалось создать временный файл", http.StatusInternalServerError)
					return
				}

				_, err = io.Copy(out, file)
				file.Close()
				out.Close()
				if err != nil {
					http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
					return
				}
				tempFilePaths = append(tempFilePaths, tempFilePath)
			}

			slog.Info("Пакеты обновлений получены сервером", "file_count", len(tempFilePaths), "task_id", taskID)

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

			// Запуск обработки в горутине
			go func() {
				// Обновление статуса до "в обработке"
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				// Создание контекста для задачи с таймаутом из конфигурации.
				taskCtx := context.Background()
				if cfg.Processing.TaskTimeoutSeconds > 0 {
					var cancel context.CancelFunc
					taskCtx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Processing.TaskTimeoutSeconds)*time.Second)
					defer cancel()
				}

				// Обработка пакетов с использованием контекста, который может иметь таймаут.
				result, err := processor.ProcessFiles(taskCtx, tempFilePaths)

				// Очистка временных файлов независимо от исхода
				for _, p := range tempFilePaths {
					os.Remove(p)
				}

				if err != nil {
					taskStore.UpdateTaskError(taskID, err.Error())
					return
				}

				// Обновление задачи с результатом
				taskStore.UpdateTaskResult(taskID, result)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для запуска новой задачи обработки по хешу
		r.Post("/process-by-hash", func(w http.ResponseWriter, r *http.Request) {
			// Разбор тела запроса
			var req struct {
				Hash string `json:"hash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
				return
			}

			if req.Hash == "" {
				http.Error(w, "Требуется хеш", http.StatusBadRequest)
				return
			}

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

			// Запуск обработки в горутине
			go func() {
				// Обновление статуса до "в обработке"
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				// Попытка получить результат из кеша
				if cachedItem, found := resultStore.Get(req.Hash); found {
					// Если найдено в кеше, обновить задачу кешированным результатом
					taskStore.UpdateTaskResult(taskID, cachedItem.Data)
					slog.Info("Попадание в кеш для хеша", "hash", req.Hash, "task_id", taskID)
					return
				}

				// Если в кеше не найдено, обычно нам нужен файл для обработки.
				// В этой реализации мы вернем ошибку, если хеш не найден в кеше.
				taskStore.UpdateTaskError(taskID, "Пакет не найден в кеше для данного хеша")
				slog.Info("Промах кеша для хеша", "hash", req.Hash, "task_id", taskID)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для проверки статуса задачи
		r.Get("/tasks/{taskID}", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"task_id":       task.ID,
				"status":        task.Status,
				"error_message": task.ErrorMessage,
			})
		})

		// Конечная точка для получения результата задачи с пагинацией
		r.Get("/tasks/{taskID}/result", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			if task.Status != TaskStatusCompleted {
				http.Error(w, "Задача не завершена", http.StatusBadRequest)
				return
			}

			// Получение параметров пагинации, по умолчанию страница 1 по 50 элементов
			parsedPage := 1
			parsedPageSize := 50
			if page := r.URL.Query().Get("page"); page != "" {
				if v, err := strconv.Atoi(page); err == nil && v > 0 {
					parsedPage = v
				}
			}
			if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
				if v, err := strconv.Atoi(pageSize); err == nil && v > 0 {
					parsedPageSize = v
				}
			}

			// Вычисление смещения и нарезка результата
			offset := (parsedPage - 1) * parsedPageSize
			startIndex := offset
			endIndex := offset + parsedPageSize

			if startIndex >= len(task.Result) {
				startIndex = len(task.Result)
				endIndex = len(task.Result)
			}
			if endIndex > len(task.Result) {
				endIndex = len(task.Result)
			}

			paginatedData := task.Result[startIndex:endIndex]

			// Вычисление метаданных пагинации
			totalItems := len(task.Result)
			totalPages := (totalItems + parsedPageSize - 1) / parsedPageSize // Округление вверх

			// Подготовка ответа
			response := struct {
				Pagination struct {
					CurrentPage int `json:"current_page"`
					PageSize    int `json:"page_size"`
					TotalItems  int `json:"total_items"`
					TotalPages  int `json:"total_pages"`
				} `json:"pagination"`
				Data []domain.ScriptResult `json:"data"`
			}{
				Pagination: struct {
					CurrentPage int `json:"current_page"`
					PageSize    int `json:"page_size"`
					TotalItems  int `json:"total_items"`
					TotalPages  int `json:"total_pages"`
				}{
					CurrentPage: parsedPage,
					PageSize:    parsedPageSize,
					TotalItems:  totalItems,
					TotalPages:  totalPages,
				},
				Data: paginatedData,
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		})
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s := &Server{
		HTTPServer:  httpServer,
		cfg:         cfg,
		taskStore:   taskStore,
		resultStore: resultStore,
		processor:   processor,
	}

	// Запуск тикеров для очистки просроченных задач и элементов кеша
	ctx := context.Background()
	s.taskStore.StartCleanupTicker(ctx, config.DefaultCleanupInterval)
	s.resultStore.StartCleanupTicker(ctx, config.DefaultCleanupInterval)

	return s, nil
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}
