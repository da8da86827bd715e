package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is the display name used for empty and undetermined codes.
const Unknown = "Unknown"

// bibliographic ISO 639-2/B codes and spelled-out names that show up in
// container tags written by older muxers.
var aliases = map[string]string{
	"fre":        "fr",
	"ger":        "de",
	"dut":        "nl",
	"chi":        "zh",
	"cze":        "cs",
	"gre":        "el",
	"per":        "fa",
	"rum":        "ro",
	"slo":        "sk",
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
}

var namer = display.English.Languages()

// Normalize converts a tag value to its shortest ISO 639 code ("eng" -> "en").
// Undetermined, empty, and unparseable values return "".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "\u0000", "")))
	if code == "" || code == "und" {
		return ""
	}
	if alias, ok := aliases[code]; ok {
		return alias
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return ""
	}
	normalized := base.String()
	if normalized == "und" {
		return ""
	}
	return normalized
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns Unknown for empty or undetermined input, or the uppercased code for
// unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	normalized := Normalize(trimmed)
	if normalized == "" {
		if trimmed == "" || strings.EqualFold(trimmed, "und") {
			return Unknown
		}
		return strings.ToUpper(trimmed)
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// ExtractFromTags extracts and normalizes the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			if normalized := Normalize(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

// NormalizeList deduplicates and normalizes a list of language codes,
// preserving first-seen order and dropping unrecognized entries.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		code := Normalize(lang)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	return normalized
}
