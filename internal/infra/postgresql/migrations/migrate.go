package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/minervahome/brain/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_reminders",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ReminderModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ReminderModel{})
			},
		},
		{
			ID: "000002_create_reminder_occurrences",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.OccurrenceModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_occurrences_reminder_due ON reminder_occurrences (reminder_id, due_at) WHERE reminder_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_occurrences_state_window_end ON reminder_occurrences (state, window_end_at)`,
					`CREATE INDEX IF NOT EXISTS idx_occurrences_due_unalerted ON reminder_occurrences (state, due_at) WHERE alerted_at IS NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.OccurrenceModel{})
			},
		},
		{
			ID: "000003_create_notification_events",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationEventModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_events_claim ON notification_events (created_at) WHERE sent_at IS NULL`,
					`CREATE INDEX IF NOT EXISTS idx_events_channel_status ON notification_events (channel, status)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationEventModel{})
			},
		},
		{
			ID: "000004_create_services",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ServiceModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_services_slug ON services (slug)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ServiceModel{})
			},
		},
		{
			ID: "000005_create_service_status",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ServiceStatusModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_service_status_service_id ON service_status (service_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ServiceStatusModel{})
			},
		},
		{
			ID: "000006_create_words",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.WordModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_words_word ON words (word)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.WordModel{})
			},
		},
		{
			ID: "000007_create_telegram_chats",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.TelegramChatModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_telegram_chats_chat_id ON telegram_chats (chat_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.TelegramChatModel{})
			},
		},
	})

	return m.Migrate()
}
