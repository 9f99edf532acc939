package domain

// PeerType — дискриминатор типа собеседника.
type PeerType int32

const (
	// PeerTypeNone — нулевое значение; означает, что идентификатор не задан
	// (например, у сообщения нет источника пересылки).
	PeerTypeNone PeerType = iota
	PeerTypeUser
	PeerTypeChat
	PeerTypeSecretChat
)

// Known сообщает, относится ли тип к одному из трех известных вариантов.
func (t PeerType) Known() bool {
	switch t {
	case PeerTypeUser, PeerTypeChat, PeerTypeSecretChat:
		return true
	}
	return false
}

// Label возвращает каноническую строковую метку типа собеседника.
// Для неизвестного тега возвращает ErrInvariantViolation: такое значение может
// появиться только из-за ошибки в вышестоящем коде, а не из-за данных.
func (t PeerType) Label() (string, error) {
	switch t {
	case PeerTypeUser:
		return "user", nil
	case PeerTypeChat:
		return "chat", nil
	case PeerTypeSecretChat:
		return "encr_chat", nil
	}
	return "", invariantf("unknown peer type tag %d", int32(t))
}

// Биты поля Flags записи о собеседнике.
const (
	PeerFlagDeleted int32 = 1 << 0
	PeerFlagContact int32 = 1 << 1
	PeerFlagBlocked int32 = 1 << 2
)

// PeerID — идентификатор собеседника: тип плюс числовой идентификатор.
// Используется и как ключ поиска, и как минимальное отображаемое значение.
type PeerID struct {
	Type PeerType
	ID   int32
}

// Known сообщает, задан ли идентификатор.
func (p PeerID) Known() bool {
	return p.Type.Known()
}

// UserInfo — данные пользователя. Все поля опциональны: пустая строка
// означает отсутствие значения.
type UserInfo struct {
	FirstName     string
	LastName      string
	RealFirstName string
	RealLastName  string
	Phone         string
}

// ChatInfo — данные группового чата.
type ChatInfo struct {
	Title        string
	MembersCount int32
}

// SecretChatInfo — данные секретного чата. Содержит идентификатор
// пользователя-владельца, который разрешается через то же хранилище.
type SecretChatInfo struct {
	UserID PeerID
}

// PeerRecord — запись о собеседнике. Появляется только после того, как
// сущность была получена из хранилища; флаг Loaded отличает заглушку от
// материализованной записи. У загруженной записи заполнено ровно одно из
// полей варианта (User/Chat/Secret) в соответствии с ID.Type.
type PeerRecord struct {
	ID        PeerID
	Loaded    bool
	PrintName string
	Flags     int32

	User   *UserInfo
	Chat   *ChatInfo
	Secret *SecretChatInfo
}

// Message — одно сообщение. Text хранится как срез байт: тело может
// содержать нулевые байты и не обязано быть валидным UTF-8.
type Message struct {
	ID      int64
	Flags   int32
	From    PeerID
	To      PeerID
	FwdFrom PeerID
	FwdDate int64
	Out     bool
	Unread  bool
	Service bool
	Date    int64
	Text    []byte
	Media   Media
}

// ScriptResult — результат вызова Lua-обработчика для одного сообщения.
type ScriptResult struct {
	MessageID string `json:"message_id"`
	Output    any    `json:"output,omitempty"`
}
