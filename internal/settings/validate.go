package settings

import (
	"fmt"
	"regexp"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var (
	fontFamilies = map[string]struct{}{"Inter": {}, "Cairo": {}, "Sans": {}}
	fontSizes    = map[string]struct{}{"sm": {}, "base": {}, "lg": {}}
	bulletStyles = map[string]struct{}{"numbers": {}, "dots": {}, "checks": {}}
)

func (t Tone) Valid() bool {
	switch t {
	case ToneOperational, ToneDirect, ToneCoaching:
		return true
	}
	return false
}

// Validate returns a map of field name to problem, or nil.
func (s AppSettings) Validate() map[string]string {
	problems := map[string]string{}
	if s.AppName == "" {
		problems["appName"] = "required"
	}
	checkColor(problems, "primaryColor", s.PrimaryColor)
	checkColor(problems, "accentColor", s.AccentColor)
	checkColor(problems, "contentStyle.textColor", s.ContentStyle.TextColor)
	checkEnum(problems, "contentStyle.fontFamily", s.ContentStyle.FontFamily, fontFamilies)
	checkEnum(problems, "contentStyle.fontSize", s.ContentStyle.FontSize, fontSizes)
	checkEnum(problems, "contentStyle.bulletStyle", s.ContentStyle.BulletStyle, bulletStyles)
	if len(problems) == 0 {
		return nil
	}
	return problems
}

func (s AIControlSettings) Validate() map[string]string {
	problems := map[string]string{}
	if !s.Tone.Valid() {
		problems["tone"] = fmt.Sprintf("must be one of %s, %s or %s", ToneOperational, ToneDirect, ToneCoaching)
	}
	checkColor(problems, "aiAccentColor", s.AIAccentColor)
	if len(problems) == 0 {
		return nil
	}
	return problems
}

func checkColor(problems map[string]string, field, value string) {
	if !hexColorPattern.MatchString(value) {
		problems[field] = "must be a hex color"
	}
}

func checkEnum(problems map[string]string, field, value string, allowed map[string]struct{}) {
	if _, ok := allowed[value]; !ok {
		problems[field] = "unsupported value"
	}
}
