package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/ports"
)

// JsonParser реализует интерфейс Parser для разбора файла пакета обновлений.
type JsonParser struct{}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser() ports.Parser {
	return &JsonParser{}
}

// Parse преобразует срез байт с JSON в сообщения и встроенные записи о собеседниках.
func (p *JsonParser) Parse(data []byte) ([]*domain.Message, []*domain.PeerRecord, error) {
	var batch domain.UpdateBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}

	peers := make([]*domain.PeerRecord, 0, len(batch.Peers))
	for i, payload := range batch.Peers {
		rec, err := convertPeer(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("peers[%d]: %w", i, err)
		}
		peers = append(peers, rec)
	}

	messages := make([]*domain.Message, 0, len(batch.Messages))
	for i, payload := range batch.Messages {
		msg, err := convertMessage(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		messages = append(messages, msg)
	}

	return messages, peers, nil
}

// parsePeerType переводит строковую метку из файла во внутренний тег.
// Метка приходит из недоверенного входа, поэтому неизвестное значение —
// нарушение инварианта, а не мягкая деградация.
func parsePeerType(label string) (domain.PeerType, error) {
	switch label {
	case "user":
		return domain.PeerTypeUser, nil
	case "chat":
		return domain.PeerTypeChat, nil
	case "encr_chat":
		return domain.PeerTypeSecretChat, nil
	}
	return domain.PeerTypeNone, domain.Invariantf("unknown peer type label %q", label)
}

func convertPeerRef(ref domain.PeerRef) (domain.PeerID, error) {
	typ, err := parsePeerType(ref.Type)
	if err != nil {
		return domain.PeerID{}, err
	}
	return domain.PeerID{Type: typ, ID: ref.ID}, nil
}

func convertPeer(payload domain.PeerPayload) (*domain.PeerRecord, error) {
	typ, err := parsePeerType(payload.Type)
	if err != nil {
		return nil, err
	}

	rec := &domain.PeerRecord{
		ID:        domain.PeerID{Type: typ, ID: payload.ID},
		Loaded:    true,
		PrintName: payload.PrintName,
		Flags:     payload.Flags,
	}

	switch typ {
	case domain.PeerTypeUser:
		rec.User = &domain.UserInfo{
			FirstName:     payload.FirstName,
			LastName:      payload.LastName,
			RealFirstName: payload.RealFirstName,
			RealLastName:  payload.RealLastName,
			Phone:         payload.Phone,
		}
		if rec.PrintName == "" {
			rec.PrintName = strings.TrimSpace(payload.FirstName + " " + payload.LastName)
		}
	case domain.PeerTypeChat:
		rec.Chat = &domain.ChatInfo{
			Title:        payload.Title,
			MembersCount: payload.MembersNum,
		}
		if rec.PrintName == "" {
			rec.PrintName = payload.Title
		}
	case domain.PeerTypeSecretChat:
		rec.Secret = &domain.SecretChatInfo{
			UserID: domain.PeerID{Type: domain.PeerTypeUser, ID: payload.UserID},
		}
	}

	return rec, nil
}

func convertMedia(payload *domain.MediaPayload) domain.Media {
	if payload == nil {
		return nil
	}
	switch domain.MediaKind(payload.Kind) {
	case domain.MediaKindPhoto:
		return domain.MediaPhoto{}
	case domain.MediaKindVideo:
		return domain.MediaVideo{}
	case domain.MediaKindAudio:
		return domain.MediaAudio{}
	case domain.MediaKindDocument:
		return domain.MediaDocument{}
	case domain.MediaKindUnsupported:
		return domain.MediaUnsupported{}
	case domain.MediaKindGeo:
		return domain.MediaGeo{Longitude: payload.Longitude, Latitude: payload.Latitude}
	case domain.MediaKindContact:
		return domain.MediaContact{
			Phone:     payload.Phone,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			UserID:    payload.UserID,
		}
	}
	// Незнакомый вид не валит разбор: проекция деградирует в плейсхолдер.
	return domain.MediaOther{Raw: payload.Kind}
}

func convertMessage(payload domain.MessagePayload) (*domain.Message, error) {
	from, err := convertPeerRef(payload.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := convertPeerRef(payload.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	msg := &domain.Message{
		ID:      payload.ID,
		Flags:   payload.Flags,
		From:    from,
		To:      to,
		Out:     payload.Out,
		Unread:  payload.Unread,
		Service: payload.Service,
		Date:    payload.Date,
		Media:   convertMedia(payload.Media),
	}

	if payload.FwdFrom != nil {
		fwd, err := convertPeerRef(*payload.FwdFrom)
		if err != nil {
			return nil, fmt.Errorf("fwd_from: %w", err)
		}
		msg.FwdFrom = fwd
		msg.FwdDate = payload.FwdDate
	}

	if payload.Text != "" {
		msg.Text = []byte(payload.Text)
	}

	return msg, nil
}
