package textutil

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pathNoiseReplacer turns filename punctuation into word breaks.
var pathNoiseReplacer = strings.NewReplacer(
	"_", " ",
	"-", " ",
	".", " ",
)

// TitleFromPath derives a display title from an executable or install path.
// "/games/hollow_knight/hollow_knight.exe" becomes "Hollow Knight". Returns
// an empty string when nothing usable remains.
func TitleFromPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(raw, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.Join(strings.Fields(pathNoiseReplacer.Replace(base)), " ")
	if base == "" || base == "/" {
		return ""
	}
	return cases.Title(language.English, cases.NoLower).String(base)
}
