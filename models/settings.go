package models

// Site setting keys. Values are URLs (or data URLs) for the media shown
// behind the reading surface.
const (
	SettingBackgroundLight = "backgroundLight"
	SettingBackgroundDark  = "backgroundDark"
	SettingAuthBackground  = "authBackground"
	SettingBackgroundMusic = "backgroundMusic"
)

// SiteSetting is one themable site asset
type SiteSetting struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	MediaType string `json:"media_type"`
}

// UpdateSettingRequest is the request body for PUT /admin/settings
type UpdateSettingRequest struct {
	Key       string `json:"key" binding:"required,oneof=backgroundLight backgroundDark authBackground backgroundMusic"`
	Value     string `json:"value" binding:"required"`
	MediaType string `json:"media_type" binding:"required,oneof=image video audio"`
}
