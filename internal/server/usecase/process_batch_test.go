package usecase

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"telegram-script-bridge/internal/cache"
	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/pkg/config"
	"telegram-script-bridge/internal/ports"
)

// Mocks for dependencies
type mockParser struct{ mock.Mock }

func (m *mockParser) Parse(data []byte) ([]*domain.Message, []*domain.PeerRecord, error) {
	args := m.Called(data)
	var msgs []*domain.Message
	var peers []*domain.PeerRecord
	if res := args.Get(0); res != nil {
		msgs = res.([]*domain.Message)
	}
	if res := args.Get(1); res != nil {
		peers = res.([]*domain.PeerRecord)
	}
	return msgs, peers, args.Error(2)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) ResolveAll(ctx context.Context, ids []domain.PeerID) ([]*domain.PeerRecord, error) {
	args := m.Called(ctx, ids)
	if res := args.Get(0); res != nil {
		return res.([]*domain.PeerRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRunner struct{ mock.Mock }

func (m *mockRunner) OnMessage(msg *domain.Message, resolver ports.PeerResolver) (any, error) {
	args := m.Called(msg, resolver)
	return args.Get(0), args.Error(1)
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "batch-*.json")
	assert.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	assert.NoError(t, err)
	assert.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func newTestUseCase(parser *mockParser, directory *mockDirectory, runner *mockRunner) (*ProcessBatchUseCase, *cache.ResultStore) {
	cfg := &config.Config{Processing: config.Processing{CacheTTLMinutes: 10}}
	peerStore := cache.NewPeerStore(time.Hour)
	resultStore := cache.NewResultStore()
	uc := NewProcessBatchUseCase(cfg, parser, directory, runner, peerStore, resultStore)
	return uc, resultStore
}

func TestProcessBatchUseCase_ProcessData(t *testing.T) {
	ctx := context.Background()
	user := domain.PeerID{Type: domain.PeerTypeUser, ID: 42}
	chat := domain.PeerID{Type: domain.PeerTypeChat, ID: 100}

	t.Run("успешный поток с дозагрузкой", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		msgs := []*domain.Message{
			{ID: 1, From: user, To: chat, Text: []byte("hi")},
			{ID: 2, From: user, To: chat, Text: []byte("bye")},
		}
		embedded := []*domain.PeerRecord{
			{ID: chat, Loaded: true, PrintName: "Team", Chat: &domain.ChatInfo{Title: "Team"}},
		}

		parser.On("Parse", []byte("{}")).Return(msgs, embedded, nil).Once()
		// Чат встроен в пакет, дозагружается только пользователь.
		directory.On("ResolveAll", mock.Anything, []domain.PeerID{user}).
			Return([]*domain.PeerRecord{
				{ID: user, Loaded: true, PrintName: "Alice", User: &domain.UserInfo{FirstName: "Alice"}},
			}, nil).Once()
		runner.On("OnMessage", msgs[0], mock.Anything).Return("one", nil).Once()
		runner.On("OnMessage", msgs[1], mock.Anything).Return("two", nil).Once()

		results, err := uc.ProcessData(ctx, []byte("{}"))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, domain.ScriptResult{MessageID: "1", Output: "one"}, results[0])
		assert.Equal(t, domain.ScriptResult{MessageID: "2", Output: "two"}, results[1])

		parser.AssertExpectations(t)
		directory.AssertExpectations(t)
		runner.AssertExpectations(t)
	})

	t.Run("ошибка разбора", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		parser.On("Parse", mock.Anything).Return(nil, nil, errors.New("bad json")).Once()

		_, err := uc.ProcessData(ctx, []byte("not json"))
		require.Error(t, err)
		directory.AssertNotCalled(t, "ResolveAll", mock.Anything, mock.Anything)
	})

	t.Run("ошибка дозагрузки прерывает обработку", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		msgs := []*domain.Message{{ID: 1, From: user, To: chat}}
		parser.On("Parse", mock.Anything).Return(msgs, nil, nil).Once()
		directory.On("ResolveAll", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()

		_, err := uc.ProcessData(ctx, []byte("{}"))
		require.Error(t, err)
		runner.AssertNotCalled(t, "OnMessage", mock.Anything, mock.Anything)
	})

	t.Run("ошибка обработчика пропускает сообщение", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		msgs := []*domain.Message{
			{ID: 1, From: user, To: chat},
			{ID: 2, From: user, To: chat},
		}
		parser.On("Parse", mock.Anything).Return(msgs, nil, nil).Once()
		directory.On("ResolveAll", mock.Anything, mock.Anything).Return(nil, nil).Once()
		runner.On("OnMessage", msgs[0], mock.Anything).Return(nil, errors.New("script error")).Once()
		runner.On("OnMessage", msgs[1], mock.Anything).Return(true, nil).Once()

		results, err := uc.ProcessData(ctx, []byte("{}"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "2", results[0].MessageID)
	})

	t.Run("фатальная ошибка прерывает пакет", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		msgs := []*domain.Message{
			{ID: 1, From: user, To: chat},
			{ID: 2, From: user, To: chat},
		}
		parser.On("Parse", mock.Anything).Return(msgs, nil, nil).Once()
		directory.On("ResolveAll", mock.Anything, mock.Anything).Return(nil, nil).Once()
		runner.On("OnMessage", msgs[0], mock.Anything).Return(nil, domain.ErrCapacityExceeded).Once()

		_, err := uc.ProcessData(ctx, []byte("{}"))
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)
		runner.AssertNumberOfCalls(t, "OnMessage", 1)
	})
}

func TestProcessBatchUseCase_ProcessFiles(t *testing.T) {
	ctx := context.Background()
	user := domain.PeerID{Type: domain.PeerTypeUser, ID: 42}
	chat := domain.PeerID{Type: domain.PeerTypeChat, ID: 100}

	t.Run("результат кешируется по хешу набора файлов", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		filePath := createTempFile(t, `{"messages":[]}`)

		msgs := []*domain.Message{{ID: 7, From: user, To: chat}}
		parser.On("Parse", []byte(`{"messages":[]}`)).Return(msgs, nil, nil).Once()
		directory.On("ResolveAll", mock.Anything, mock.Anything).Return(nil, nil).Once()
		runner.On("OnMessage", msgs[0], mock.Anything).Return("ok", nil).Once()

		first, err := uc.ProcessFiles(ctx, []string{filePath})
		require.NoError(t, err)
		require.Len(t, first, 1)

		// Повторный вызов для того же файла отдается из кеша: парсер не трогаем.
		second, err := uc.ProcessFiles(ctx, []string{filePath})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		parser.AssertNumberOfCalls(t, "Parse", 1)
	})

	t.Run("отсутствующий файл", func(t *testing.T) {
		parser := new(mockParser)
		directory := new(mockDirectory)
		runner := new(mockRunner)
		uc, _ := newTestUseCaseT(t, parser, directory, runner)

		_, err := uc.ProcessFiles(ctx, []string{"no-such-file.json"})
		require.Error(t, err)
	})
}

func newTestUseCaseT(t *testing.T, parser *mockParser, directory *mockDirectory, runner *mockRunner) (*ProcessBatchUseCase, *cache.ResultStore) {
	t.Helper()
	return newTestUseCase(parser, directory, runner)
}
