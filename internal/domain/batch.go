package domain

// UpdateBatch представляет корневую структуру файла пакета обновлений.
type UpdateBatch struct {
	Peers    []PeerPayload    `json:"peers"`
	Messages []MessagePayload `json:"messages"`
}

// PeerRef — ссылка на собеседника внутри сообщения.
type PeerRef struct {
	Type string `json:"type"`
	ID   int32  `json:"id"`
}

// PeerPayload — запись о собеседнике, встроенная в пакет обновлений.
// Поля варианта заполняются в зависимости от Type.
type PeerPayload struct {
	Type      string `json:"type"`
	ID        int32  `json:"id"`
	PrintName string `json:"print_name,omitempty"`
	Flags     int32  `json:"flags,omitempty"`

	// user
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	RealFirstName string `json:"real_first_name,omitempty"`
	RealLastName  string `json:"real_last_name,omitempty"`
	Phone         string `json:"phone,omitempty"`

	// chat
	Title      string `json:"title,omitempty"`
	MembersNum int32  `json:"members_num,omitempty"`

	// encr_chat: идентификатор пользователя-владельца
	UserID int32 `json:"user_id,omitempty"`
}

// MediaPayload — вложение сообщения в файле пакета обновлений.
type MediaPayload struct {
	Kind string `json:"kind"`

	// geo
	Longitude float64 `json:"longitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`

	// contact
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	UserID    int32  `json:"user_id,omitempty"`
}

// MessagePayload — одно сообщение в файле пакета обновлений.
type MessagePayload struct {
	ID      int64         `json:"id"`
	Flags   int32         `json:"flags"`
	From    PeerRef       `json:"from"`
	To      PeerRef       `json:"to"`
	FwdFrom *PeerRef      `json:"fwd_from,omitempty"`
	FwdDate int64         `json:"fwd_date,omitempty"`
	Out     bool          `json:"out"`
	Unread  bool          `json:"unread"`
	Service bool          `json:"service"`
	Date    int64         `json:"date"`
	Text    string        `json:"text,omitempty"`
	Media   *MediaPayload `json:"media,omitempty"`
}
