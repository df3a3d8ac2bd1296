package messages

const (
	ActionLike   = "like"
	ActionUnlike = "unlike"

	AppliedLiked   = "liked"
	AppliedUnliked = "unliked"
)

type Message struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Time    string `json:"time"`
	Likes   int    `json:"likes"`
}

type CreateMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type CreateMessageResponse struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Time    string `json:"time"`
}

type DeleteMessageResponse struct {
	Success bool `json:"success"`
}

type ToggleLikeRequest struct {
	Action string `json:"action" validate:"required,oneof=like unlike"`
}

type ToggleLikeResponse struct {
	Success bool   `json:"success"`
	Likes   int    `json:"likes"`
	Action  string `json:"action"`
}

// Stats is a point-in-time summary of the board.
type Stats struct {
	Messages  int64 `json:"messages"`
	Likes     int64 `json:"likes"`
	SizeBytes int64 `json:"size_bytes"`
}

// Event types published after a successful write.
const (
	EventCreated      = "message_created"
	EventDeleted      = "message_deleted"
	EventLikesChanged = "likes_changed"
)

type Event struct {
	Type  string `json:"type"`
	ID    int64  `json:"id"`
	Likes *int   `json:"likes,omitempty"`
}
