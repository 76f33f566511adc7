package model

// Themes accepted by Settings.Theme.
var Themes = []string{"dark", "ocean", "forest", "minimal-black"}

// Settings holds global preferences.
type Settings struct {
	DefaultVolume      int    `yaml:"default_volume" json:"defaultVolume"`
	AutoStartAudio     bool   `yaml:"auto_start_audio" json:"autoStartAudio"`
	NotifyOnComplete   bool   `yaml:"notify_on_complete" json:"notifyOnComplete"`
	AutoStartNextTimer bool   `yaml:"auto_start_next_timer" json:"autoStartNextTimer"`
	MinimizeToTray     bool   `yaml:"minimize_to_tray" json:"minimizeToTray"`
	Theme              string `yaml:"theme" json:"theme"`
}

// DefaultSettings returns factory defaults.
func DefaultSettings() Settings {
	return Settings{
		DefaultVolume:      70,
		AutoStartAudio:     true,
		NotifyOnComplete:   true,
		AutoStartNextTimer: false,
		MinimizeToTray:     false,
		Theme:              "dark",
	}
}

// ValidTheme reports whether theme is a known theme name.
func ValidTheme(theme string) bool {
	for _, known := range Themes {
		if known == theme {
			return true
		}
	}
	return false
}
