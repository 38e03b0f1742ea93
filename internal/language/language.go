package language

import (
	"errors"
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknown reports input that does not name a language.
var ErrUnknown = errors.New("unknown language")

// Bibliographic ISO 639-2 codes that the tag parser does not map on its own.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"cze": "cs",
	"gre": "el",
}

// Languages whose English names are accepted as input.
var named = []string{
	"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh", "ru",
	"ar", "hi", "nl", "pl", "sv", "da", "no", "fi", "cs", "el",
	"tr", "uk", "he", "hu",
}

var byName map[string]string

func init() {
	names := display.English.Languages()
	byName = make(map[string]string, len(named))
	for _, code := range named {
		name := names.Name(xlang.MustParse(code))
		if name == "" {
			continue
		}
		byName[strings.ToLower(name)] = code
	}
}

// Normalize returns the base language code for value. Codes with an
// ISO 639-1 form collapse to it; other languages keep their ISO 639-2 base.
func Normalize(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", fmt.Errorf("%w: empty value", ErrUnknown)
	}
	if code, ok := bibliographic[v]; ok {
		return code, nil
	}
	if code, ok := byName[v]; ok {
		return code, nil
	}
	tag, err := xlang.Parse(v)
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrUnknown, value)
	}
	// Only an explicit language subtag counts; "und" and region-only tags
	// would otherwise resolve to a guessed language.
	base, confidence := tag.Base()
	if tag == xlang.Und || confidence != xlang.Exact {
		return "", fmt.Errorf("%w %q", ErrUnknown, value)
	}
	return base.String(), nil
}

// DisplayName returns the English name for code, or the code itself when the
// name is unknown.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	tag, err := xlang.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return trimmed
}
