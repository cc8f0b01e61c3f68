// Package settings defines the global branding and AI governance settings
// and how stored values are layered over the built-in defaults.
package settings

type ContentStyle struct {
	FontFamily  string `json:"fontFamily"`
	FontSize    string `json:"fontSize"`
	TextColor   string `json:"textColor"`
	BulletStyle string `json:"bulletStyle"`
}

type AppSettings struct {
	AppName      string       `json:"appName"`
	LogoText     string       `json:"logoText"`
	PrimaryColor string       `json:"primaryColor"`
	AccentColor  string       `json:"accentColor"`
	ContentStyle ContentStyle `json:"contentStyle"`
}

type Tone string

const (
	ToneOperational Tone = "operational"
	ToneDirect      Tone = "direct"
	ToneCoaching    Tone = "coaching"
)

type AIScope struct {
	UseShortAnswers bool `json:"useShortAnswers"`
	UseFullContent  bool `json:"useFullContent"`
	UseAttachments  bool `json:"useAttachments"`
}

type AIControlSettings struct {
	Enabled        bool     `json:"enabled"`
	AllowedTeamIDs []string `json:"allowedTeamIds"`
	Scope          AIScope  `json:"scope"`
	StrictMode     bool     `json:"strictMode"`
	Tone           Tone     `json:"tone"`
	AIAccentColor  string   `json:"aiAccentColor"`
}

type AIStats struct {
	Count    int    `json:"count"`
	LastUsed *int64 `json:"lastUsed"`
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

func DefaultAppSettings() AppSettings {
	return AppSettings{
		AppName:      "Elmenus Knowledge Base",
		LogoText:     "elmenus",
		PrimaryColor: "#E31E24",
		AccentColor:  "#F8B717",
		ContentStyle: ContentStyle{
			FontFamily:  "Inter",
			FontSize:    "base",
			TextColor:   "#1e293b",
			BulletStyle: "numbers",
		},
	}
}

func DefaultAIControlSettings() AIControlSettings {
	return AIControlSettings{
		Enabled:        true,
		AllowedTeamIDs: []string{"t1", "t2", "t3", "t4"},
		Scope: AIScope{
			UseShortAnswers: true,
			UseFullContent:  true,
			UseAttachments:  false,
		},
		StrictMode:    true,
		Tone:          ToneOperational,
		AIAccentColor: "#2563EB",
	}
}
