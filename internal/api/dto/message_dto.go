package dto

type EnqueueMessageRequest struct {
	To      string          `json:"to" binding:"required"`
	Type    string          `json:"type" binding:"required"`
	Msg     string          `json:"msg" binding:"required"`
	Options *MessageOptions `json:"options"`
}

type MessageOptions struct {
	Caption string `json:"caption"`
}

type EnqueueMessageResponse struct {
	MessageID string `json:"message_id"`
	Queue     string `json:"queue"`
}
