package models

// MessageTemplate is a reusable subject/content pair an editor can
// reference from a send-message node instead of typing templates
// inline (the message_tpl_id parameter).
type MessageTemplate struct {
	ID      string `json:"id"      validate:"required"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}
