package services

import "telegram-script-bridge/internal/domain"

// PeerReferences собирает все идентификаторы собеседников, на которые
// ссылается пакет: отправители, получатели и источники пересылки сообщений,
// а также владельцы секретных чатов из встроенных записей. Дубликаты
// отбрасываются, порядок соответствует первому упоминанию.
func PeerReferences(msgs []*domain.Message, peers []*domain.PeerRecord) []domain.PeerID {
	seen := make(map[domain.PeerID]struct{})
	var refs []domain.PeerID

	add := func(id domain.PeerID) {
		if !id.Known() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		refs = append(refs, id)
	}

	for _, m := range msgs {
		if m == nil {
			continue
		}
		add(m.From)
		add(m.To)
		add(m.FwdFrom)
	}

	for _, p := range peers {
		if p == nil {
			continue
		}
		add(p.ID)
		if p.Secret != nil {
			add(p.Secret.UserID)
		}
	}

	return refs
}
