package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation описывает чат. Для краудсорсинговой работы создаётся
// групповой чат, к которому присоединяются принятые участники команды.
type Conversation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	JobID     *uuid.UUID `db:"job_id" json:"job_id,omitempty"`
	IsGroup   bool       `db:"is_group" json:"is_group"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Message описывает сообщение в чате.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
