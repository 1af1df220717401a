package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Harshita0007/DropLater/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notes",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NoteModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_notes_due ON notes (release_at) WHERE status = 'pending'`,
					`CREATE INDEX IF NOT EXISTS idx_notes_retry ON notes (next_retry_at) WHERE status = 'failed' AND next_retry_at IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_notes_status_created ON notes (status, created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NoteModel{})
			},
		},
		{
			ID: "000002_create_note_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.AttemptModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_note_attempts_note_id ON note_attempts (note_id, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.AttemptModel{})
			},
		},
	})

	return m.Migrate()
}
