package telegram

const previewsPerChat = 32

// previewStore remembers the image each preview message shows, so its
// Download button keeps fetching that image after the chat generates again
// or renews. It is only touched from the Run loop.
type previewStore struct {
	limit int
	chats map[int64]*chatPreviews
}

type chatPreviews struct {
	order []int
	urls  map[int]string
}

func newPreviewStore(limit int) *previewStore {
	return &previewStore{
		limit: limit,
		chats: make(map[int64]*chatPreviews),
	}
}

func (s *previewStore) put(chatID int64, messageID int, url string) {
	chat, ok := s.chats[chatID]
	if !ok {
		chat = &chatPreviews{urls: make(map[int]string)}
		s.chats[chatID] = chat
	}
	if _, exists := chat.urls[messageID]; !exists {
		chat.order = append(chat.order, messageID)
	}
	chat.urls[messageID] = url

	for len(chat.order) > s.limit {
		delete(chat.urls, chat.order[0])
		chat.order = chat.order[1:]
	}
}

func (s *previewStore) get(chatID int64, messageID int) (string, bool) {
	chat, ok := s.chats[chatID]
	if !ok {
		return "", false
	}
	url, ok := chat.urls[messageID]
	return url, ok
}

func (s *previewStore) forget(chatID int64, messageID int) {
	chat, ok := s.chats[chatID]
	if !ok {
		return
	}
	if _, exists := chat.urls[messageID]; !exists {
		return
	}
	delete(chat.urls, messageID)
	for i, id := range chat.order {
		if id == messageID {
			chat.order = append(chat.order[:i], chat.order[i+1:]...)
			break
		}
	}
}
