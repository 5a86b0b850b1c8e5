package domain

import "time"

// TelegramChat is a registered chat destination for reminder notifications.
type TelegramChat struct {
	ID          string
	ChatID      int64
	ChatType    string
	Username    *string
	Title       *string
	Enabled     bool
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
