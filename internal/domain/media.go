package domain

// MediaKind — строковая метка вида вложения.
type MediaKind string

const (
	MediaKindPhoto       MediaKind = "photo"
	MediaKindVideo       MediaKind = "video"
	MediaKindAudio       MediaKind = "audio"
	MediaKindDocument    MediaKind = "document"
	MediaKindUnsupported MediaKind = "unsupported"
	MediaKindGeo         MediaKind = "geo"
	MediaKindContact     MediaKind = "contact"
)

// Media — вложение сообщения. Набор видов со временем растет, поэтому
// потребители обязаны деградировать мягко на незнакомом виде, а не падать.
type Media interface {
	Kind() MediaKind
}

// MediaPhoto — фотография. Структурных данных не несет.
type MediaPhoto struct{}

func (MediaPhoto) Kind() MediaKind { return MediaKindPhoto }

// MediaVideo — видео.
type MediaVideo struct{}

func (MediaVideo) Kind() MediaKind { return MediaKindVideo }

// MediaAudio — аудио.
type MediaAudio struct{}

func (MediaAudio) Kind() MediaKind { return MediaKindAudio }

// MediaDocument — документ.
type MediaDocument struct{}

func (MediaDocument) Kind() MediaKind { return MediaKindDocument }

// MediaUnsupported — вложение, которое клиент не умеет отображать.
type MediaUnsupported struct{}

func (MediaUnsupported) Kind() MediaKind { return MediaKindUnsupported }

// MediaGeo — географическая точка.
type MediaGeo struct {
	Longitude float64
	Latitude  float64
}

func (MediaGeo) Kind() MediaKind { return MediaKindGeo }

// MediaContact — карточка контакта.
type MediaContact struct {
	Phone     string
	FirstName string
	LastName  string
	UserID    int32
}

func (MediaContact) Kind() MediaKind { return MediaKindContact }

// MediaOther — вложение вида, незнакомого этому коду. Несет исходную метку;
// проекция деградирует в плейсхолдер.
type MediaOther struct {
	Raw string
}

func (m MediaOther) Kind() MediaKind { return MediaKind(m.Raw) }
