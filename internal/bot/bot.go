package bot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"telegram-script-bridge/cmd/bot/config"
	applog "telegram-script-bridge/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand = "start"
)

// fileBatch — накапливаемая пачка документов от одного чата.
// Пачка отправляется на сервер целиком: либо по таймеру,
// либо как только достигнут лимит файлов.
type fileBatch struct {
	docs  []*tgbotapi.Document
	timer *time.Timer
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger
	httpClient   *http.Client

	pendingFiles      map[int64]*fileBatch
	pendingFilesMutex sync.Mutex

	// Вынесены в поля, чтобы тесты могли подменять взаимодействие с Telegram API.
	sendMessageFunc      func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	if err := tgbotapi.SetLogger(&applog.TGBotAPIAdapter{Logger: logger}); err != nil {
		return nil, fmt.Errorf("failed to set bot api logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := &Bot{
		api:          api,
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
		pendingFiles: make(map[int64]*fileBatch),
	}
	b.sendMessageFunc = api.Send
	b.getFileDirectURLFunc = api.GetFileDirectURL

	return b, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	// Ответ на любые другие сообщения
	reply := tgbotapi.NewMessage(msg.Chat.ID, "Пожалуйста, отправьте мне JSON-файл с пакетом обновлений для обработки скриптом.")
	b.sendMessage(reply)
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		replyText := "Добро пожаловать! Я бот для прогона пакетов обновлений через Lua-скрипт.\n\n" +
			"Отправьте мне один или несколько JSON-файлов с обновлениями, и я верну результаты обработчика по каждому сообщению.\n\n" +
			"Пожалуйста, обратите внимание:\n" +
			fmt.Sprintf("• Не больше %d файлов за раз.\n", b.cfg.MaxFilesPerMessage) +
			"• Файлы не сохраняются на сервере и обрабатываются на лету."
		reply := tgbotapi.NewMessage(msg.Chat.ID, replyText)
		b.sendMessage(reply)
	default:
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Я не знаю такой команды.")
		b.sendMessage(reply)
	}
}

// handleDocument обрабатывает входящий документ (файл).
// Файлы, отправленные одним сообщением, приходят отдельными обновлениями,
// поэтому они накапливаются в пачку и отправляются на сервер вместе.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	// Проверяем, нет ли уже активной задачи.
	if _, ok := b.taskStore.Get(chatID); ok {
		logger.Warn("user tried to start a new task while another is active")
		reply := tgbotapi.NewMessage(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		b.sendMessage(reply)
		return
	}

	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	if !ok {
		batch = &fileBatch{}
		b.pendingFiles[chatID] = batch
	}

	if len(batch.docs) >= b.cfg.MaxFilesPerMessage {
		if batch.timer != nil {
			batch.timer.Stop()
		}
		delete(b.pendingFiles, chatID)
		b.pendingFilesMutex.Unlock()

		logger.Warn("file limit per message exceeded", slog.Int("limit", b.cfg.MaxFilesPerMessage))
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Превышен лимит файлов в одном сообщении: не больше %d файлов. Пачка отброшена, отправьте файлы заново.",
			b.cfg.MaxFilesPerMessage))
		b.sendMessage(reply)
		return
	}

	batch.docs = append(batch.docs, msg.Document)

	if len(batch.docs) == b.cfg.MaxFilesPerMessage {
		// Лимит достигнут, дальше ждать нечего.
		if batch.timer != nil {
			batch.timer.Stop()
		}
		b.pendingFilesMutex.Unlock()
		go b.processFileBatch(context.Background(), chatID)
		return
	}

	// Перезапускаем таймер ожидания остальных файлов пачки.
	if batch.timer != nil {
		batch.timer.Stop()
	}
	batch.timer = time.AfterFunc(time.Duration(b.cfg.FileBatchTimeoutSecs)*time.Second, func() {
		b.processFileBatch(context.Background(), chatID)
	})
	b.pendingFilesMutex.Unlock()
}

// processFileBatch скачивает накопленные файлы и запускает задачу на бэкенде.
func (b *Bot) processFileBatch(ctx context.Context, chatID int64) {
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	if ok {
		delete(b.pendingFiles, chatID)
		if batch.timer != nil {
			batch.timer.Stop()
		}
	}
	b.pendingFilesMutex.Unlock()

	if !ok || len(batch.docs) == 0 {
		return
	}

	type downloadedFile struct {
		name    string
		content []byte
		hash    string
	}

	files := make([]downloadedFile, 0, len(batch.docs))
	for _, doc := range batch.docs {
		fileURL, err := b.getFileDirectURLFunc(doc.FileID)
		if err != nil {
			logger.Error("failed to get file direct url", slog.String("error", err.Error()))
			b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось получить доступ к файлу. Попробуйте отправить его еще раз."))
			return
		}

		resp, err := b.httpClient.Get(fileURL)
		if err != nil {
			logger.Error("failed to download file", slog.String("error", err.Error()))
			b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось скачать файл. Попробуйте отправить его еще раз."))
			return
		}

		content, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			logger.Error("failed to read file body", slog.String("error", err.Error()))
			b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось скачать файл. Попробуйте отправить его еще раз."))
			return
		}

		files = append(files, downloadedFile{
			name:    doc.FileName,
			content: content,
			hash:    fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	// Стабильный порядок по хешу содержимого: сервер кеширует результат
	// по совокупному хешу пачки, и порядок загрузки не должен на него влиять.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].hash < files[j].hash
	})

	docFiles := make([]DocumentFile, 0, len(files))
	for _, f := range files {
		docFiles = append(docFiles, DocumentFile{Name: f.name, Content: bytes.NewReader(f.content)})
	}

	startResp, err := b.serverClient.StartTask(ctx, docFiles)
	if err != nil {
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось начать обработку на сервере. Пожалуйста, попробуйте позже."))
		return
	}

	taskID := startResp.TaskID
	logger = logger.With(slog.String("task_id", taskID))
	logger.Info("task started on backend", slog.Int("file_count", len(docFiles)))

	b.taskStore.Set(chatID, taskID)
	go b.pollTaskStatus(context.Background(), chatID, taskID)

	b.sendMessage(tgbotapi.NewMessage(chatID, "✅ Файлы получены и поставлены в очередь на обработку. Ожидайте результата."))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID) // Гарантированно удаляем задачу по завершении.

	ticker := time.NewTicker(time.Duration(b.cfg.PollingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			logger.Debug("polling task status")
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, taskID)
				return // Завершаем опрос
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Произошла ошибка при обработке: %s", status.ErrorMessage))
				b.sendMessage(reply)
				return // Завершаем опрос
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status))
				// Продолжаем опрос
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask обрабатывает успешно завершенную задачу.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	logger.Info("fetching results for completed task")

	results, err := b.fetchAllResults(ctx, taskID)
	if err != nil {
		logger.Error("failed to fetch all results", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже.")
		b.sendMessage(reply)
		return
	}

	logger.Info("successfully fetched all results", slog.Int("result_count", len(results)))

	if len(results) == 0 {
		reply := tgbotapi.NewMessage(chatID, "Скрипт не вернул результатов для предоставленных файлов.")
		b.sendMessage(reply)
		return
	}

	// Логика ветвления в зависимости от количества результатов
	if len(results) >= b.cfg.ExcelThreshold {
		logger.Info("result count is over threshold, sending excel file")
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Обработано %d сообщений. Формирую Excel-файл...", len(results))))
		b.sendExcelResult(chatID, results)
	} else {
		logger.Info("result count is under threshold, sending text message")
		b.sendTextResult(chatID, results)
	}
}

// fetchAllResults собирает все страницы с результатами для данной задачи.
func (b *Bot) fetchAllResults(ctx context.Context, taskID string) ([]ResultDTO, error) {
	var allResults []ResultDTO
	page := 1
	pageSize := 100 // Запрашиваем по 100, чтобы уменьшить количество запросов

	for {
		result, err := b.serverClient.GetTaskResult(ctx, taskID, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get task result page %d: %w", page, err)
		}

		allResults = append(allResults, result.Data...)

		if page >= result.Pagination.TotalPages {
			break // Все страницы собраны
		}
		page++
	}

	return allResults, nil
}

// renderOutput приводит сырой JSON-результат скрипта к строке для отчета.
// Строковые значения показываются без кавычек, остальное — как компактный JSON.
func renderOutput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (b *Bot) sendExcelResult(chatID int64, results []ResultDTO) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			b.logger.Error("failed to close excel file", slog.String("error", err.Error()))
		}
	}()

	sheetName := "Результаты"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	// Заголовки
	headers := []string{"Дата экспорта", "ID сообщения", "Результат скрипта"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	// Данные
	exportDate := time.Now().Format(time.RFC3339)
	for i, res := range results {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), exportDate)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), res.MessageID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), renderOutput(res.Output))
	}

	// Запись в буфер
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		b.logger.Error("failed to write excel to buffer", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось сгенерировать Excel-файл."))
		return
	}

	// Отправка файла
	fileName := fmt.Sprintf("script_results_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	fileBytes := tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Обработка завершена. Получено %d результатов.", len(results))
	b.sendMessage(msg)
}

// sendTextResult форматирует и отправляет результат в виде текстового сообщения HTML.
func (b *Bot) sendTextResult(chatID int64, results []ResultDTO) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Обработано %d сообщений. Вот результаты:\n", len(results)))
	sb.WriteString("<pre><code>") // Используем HTML для надежного форматирования

	// Получаем ширину колонок из конфигурации
	msgColWidth := b.cfg.Render.Message
	outColWidth := b.cfg.Render.Output

	// Формируем заголовок
	headerMsg := "Message"
	headerOut := "Output"

	headerLine := fmt.Sprintf("| %s%s | %s%s |\n",
		headerMsg, strings.Repeat(" ", msgColWidth-len(headerMsg)),
		headerOut, strings.Repeat(" ", outColWidth-len(headerOut)),
	)
	sb.WriteString(headerLine)

	// Формируем разделитель
	separatorLine := fmt.Sprintf("|%s|%s|\n",
		strings.Repeat("-", msgColWidth+2),
		strings.Repeat("-", outColWidth+2),
	)
	sb.WriteString(separatorLine)

	for _, res := range results {
		// 1. Очищаем данные
		cleanOut := strings.ToValidUTF8(renderOutput(res.Output), "")

		// 2. Экранируем и убираем исходные переносы
		out := html.EscapeString(cleanOut)
		out = strings.ReplaceAll(out, "\n", " ")

		// 3. Разбиваем строки на несколько с переносом слов
		msgLines := wrapString(res.MessageID, msgColWidth)
		outLines := wrapString(out, outColWidth)

		maxLines := len(msgLines)
		if len(outLines) > maxLines {
			maxLines = len(outLines)
		}

		// 4. Печатаем строки для текущего результата
		for i := 0; i < maxLines; i++ {
			msgPart := ""
			if i < len(msgLines) {
				msgPart = msgLines[i]
			}

			outPart := ""
			if i < len(outLines) {
				outPart = outLines[i]
			}

			// Добиваем пробелами до нужной ширины
			padMsg := generatePadding(msgPart, msgColWidth)
			padOut := generatePadding(outPart, outColWidth)

			sb.WriteString(fmt.Sprintf("| %s%s | %s%s |\n", msgPart, padMsg, outPart, padOut))
		}
	}
	sb.WriteString("</code></pre>")

	text := sb.String()
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML

	// Проверка на максимальную длину сообщения в Telegram (4096 символов)
	if len(text) > 4096 {
		b.logger.Warn("сгенерированный текст слишком длинный, отправка в виде файла", "length", len(text))
		b.sendResultAsTextFile(chatID, results)
		return
	}

	if _, err := b.sendMessageFunc(reply); err != nil {
		b.logger.Error("не удалось отправить текстовый результат", "error", err.Error())
	}
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Прагматическая поправка: если в строке есть CJK-символы, добавляем один пробел,
	// чтобы компенсировать ошибку рендеринга в некоторых клиентах.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString wraps a given string to a specified width using runewidth.
// It prioritizes wrapping on word boundaries (spaces). If a single word is
// longer than the width, it will be broken mid-word.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	words := strings.Fields(s)

	if len(words) == 0 { // Handles strings with only spaces or empty strings
		runes := []rune(s)
		for len(runes) > 0 {
			i := 0
			currentWidth := 0
			for i < len(runes) {
				runeWidth := runewidth.RuneWidth(runes[i])
				if currentWidth+runeWidth > width {
					break
				}
				currentWidth += runeWidth
				i++
			}
			lines = append(lines, string(runes[:i]))
			runes = runes[i:]
		}
		if len(lines) == 0 {
			return []string{""}
		}
		return lines
	}

	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		// Handle words longer than the entire width
		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}

			runes := []rune(word)
			for len(runes) > 0 {
				i := 0
				currentWidth := 0
				for i < len(runes) {
					runeWidth := runewidth.RuneWidth(runes[i])
					if currentWidth+runeWidth > width {
						break
					}
					currentWidth += runeWidth
					i++
				}
				lines = append(lines, string(runes[:i]))
				runes = runes[i:]
			}
			continue
		}

		// If the word doesn't fit on the current line, start a new one
		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

// sendResultAsTextFile отправляет результаты в виде CSV-файла.
func (b *Bot) sendResultAsTextFile(chatID int64, results []ResultDTO) {
	var buf bytes.Buffer
	buf.WriteString("message_id,output\n")

	for _, res := range results {
		out := renderOutput(res.Output)
		buf.WriteString(fmt.Sprintf("\"%s\",\"%s\"\n",
			strings.ReplaceAll(res.MessageID, "\"", "\"\""),
			strings.ReplaceAll(out, "\"", "\"\""),
		))
	}

	fileName := fmt.Sprintf("script_results_%s.txt", time.Now().Format("2006-01-02_15-04-05"))
	fileBytes := tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Обработка завершена. Получено %d результатов. Список слишком большой для одного сообщения, поэтому он прикреплен в виде файла.", len(results))
	b.sendMessage(msg)
}
