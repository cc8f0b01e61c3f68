package settings

import "encoding/json"

// The stored documents are decoded into the *Layer types below, whose pointer
// fields record which values were actually present. Each Apply function
// copies present values over the base, one field at a time.

type ContentStyleLayer struct {
	FontFamily  *string `json:"fontFamily,omitempty"`
	FontSize    *string `json:"fontSize,omitempty"`
	TextColor   *string `json:"textColor,omitempty"`
	BulletStyle *string `json:"bulletStyle,omitempty"`
}

type AppSettingsLayer struct {
	AppName      *string            `json:"appName,omitempty"`
	LogoText     *string            `json:"logoText,omitempty"`
	PrimaryColor *string            `json:"primaryColor,omitempty"`
	AccentColor  *string            `json:"accentColor,omitempty"`
	ContentStyle *ContentStyleLayer `json:"contentStyle,omitempty"`
}

type AIScopeLayer struct {
	UseShortAnswers *bool `json:"useShortAnswers,omitempty"`
	UseFullContent  *bool `json:"useFullContent,omitempty"`
	UseAttachments  *bool `json:"useAttachments,omitempty"`
}

type AIControlSettingsLayer struct {
	Enabled        *bool         `json:"enabled,omitempty"`
	AllowedTeamIDs *[]string     `json:"allowedTeamIds,omitempty"`
	Scope          *AIScopeLayer `json:"scope,omitempty"`
	StrictMode     *bool         `json:"strictMode,omitempty"`
	Tone           *Tone         `json:"tone,omitempty"`
	AIAccentColor  *string       `json:"aiAccentColor,omitempty"`
}

func (l ContentStyleLayer) Apply(base ContentStyle) ContentStyle {
	setString(&base.FontFamily, l.FontFamily)
	setString(&base.FontSize, l.FontSize)
	setString(&base.TextColor, l.TextColor)
	setString(&base.BulletStyle, l.BulletStyle)
	return base
}

func (l AppSettingsLayer) Apply(base AppSettings) AppSettings {
	setString(&base.AppName, l.AppName)
	setString(&base.LogoText, l.LogoText)
	setString(&base.PrimaryColor, l.PrimaryColor)
	setString(&base.AccentColor, l.AccentColor)
	if l.ContentStyle != nil {
		base.ContentStyle = l.ContentStyle.Apply(base.ContentStyle)
	}
	return base
}

func (l AIScopeLayer) Apply(base AIScope) AIScope {
	setBool(&base.UseShortAnswers, l.UseShortAnswers)
	setBool(&base.UseFullContent, l.UseFullContent)
	setBool(&base.UseAttachments, l.UseAttachments)
	return base
}

func (l AIControlSettingsLayer) Apply(base AIControlSettings) AIControlSettings {
	setBool(&base.Enabled, l.Enabled)
	if l.AllowedTeamIDs != nil {
		base.AllowedTeamIDs = append([]string{}, (*l.AllowedTeamIDs)...)
	}
	if l.Scope != nil {
		base.Scope = l.Scope.Apply(base.Scope)
	}
	setBool(&base.StrictMode, l.StrictMode)
	if l.Tone != nil {
		base.Tone = *l.Tone
	}
	setString(&base.AIAccentColor, l.AIAccentColor)
	return base
}

// DecodeAppSettings layers a stored document over the defaults.
func DecodeAppSettings(raw []byte) (AppSettings, error) {
	var layer AppSettingsLayer
	if err := json.Unmarshal(raw, &layer); err != nil {
		return DefaultAppSettings(), err
	}
	return layer.Apply(DefaultAppSettings()), nil
}

// DecodeAIControlSettings layers a stored document over the defaults.
func DecodeAIControlSettings(raw []byte) (AIControlSettings, error) {
	var layer AIControlSettingsLayer
	if err := json.Unmarshal(raw, &layer); err != nil {
		return DefaultAIControlSettings(), err
	}
	return layer.Apply(DefaultAIControlSettings()), nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
