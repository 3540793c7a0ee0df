package repository

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chu-duc-anh/imnovelteam/database"
	"github.com/chu-duc-anh/imnovelteam/models"
)

// SettingsRepository handles site setting database operations
type SettingsRepository struct{}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

// GetAll returns every configured site setting
func (r *SettingsRepository) GetAll() ([]models.SiteSetting, error) {
	rows, err := database.DB.Query(`
		SELECT id, setting_key, value, media_type FROM site_settings
		ORDER BY setting_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := []models.SiteSetting{}
	for rows.Next() {
		var s models.SiteSetting
		if err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.MediaType); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// Upsert creates or replaces the setting for the given key
func (r *SettingsRepository) Upsert(setting *models.SiteSetting) error {
	if setting.ID == "" {
		setting.ID = uuid.New().String()
	}

	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE site_settings SET value = ?, media_type = ? WHERE setting_key = ?`,
			setting.Value, setting.MediaType, setting.Key,
		)
		if err != nil {
			return fmt.Errorf("failed to update setting: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected > 0 {
			return nil
		}

		if _, err := database.DB.Exec(`
			INSERT INTO site_settings (id, setting_key, value, media_type)
			VALUES (?, ?, ?, ?)`,
			setting.ID, setting.Key, setting.Value, setting.MediaType,
		); err != nil {
			return fmt.Errorf("failed to insert setting: %w", err)
		}
		return nil
	})
}
