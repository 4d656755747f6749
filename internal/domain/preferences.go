package domain

// PreferencesKey is the local settings key holding the theme blob.
const PreferencesKey = "ai_reader_settings"

type Preferences struct {
	DarkMode   bool `json:"darkMode"`
	EyeComfort bool `json:"eyeComfort"`
}

func DefaultPreferences() Preferences {
	return Preferences{DarkMode: true, EyeComfort: false}
}

type UpdatePreferencesRequest struct {
	DarkMode   *bool `json:"darkMode"`
	EyeComfort *bool `json:"eyeComfort"`
}
