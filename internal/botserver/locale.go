package botserver

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed lang/*.json
var langFS embed.FS

// DefaultLang is the language used before a user picks one.
const DefaultLang = "ar"

// Locales holds the translated string tables, keyed by language code.
type Locales struct {
	strings map[string]map[string]string
}

// LoadLocales parses the embedded language files.
func LoadLocales() (*Locales, error) {
	loc := &Locales{strings: make(map[string]map[string]string)}
	entries, err := langFS.ReadDir("lang")
	if err != nil {
		return nil, fmt.Errorf("read lang dir: %w", err)
	}
	for _, e := range entries {
		code := strings.TrimSuffix(e.Name(), ".json")
		data, err := langFS.ReadFile("lang/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		table := make(map[string]string)
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		loc.strings[code] = table
	}
	if _, ok := loc.strings[DefaultLang]; !ok {
		return nil, fmt.Errorf("default language %q missing", DefaultLang)
	}
	return loc, nil
}

// T returns the translated string for lang and key, substituting
// {placeholder} arguments. Unknown languages fall back to the default;
// unknown keys fall back to the key itself.
func (l *Locales) T(lang, key string, args ...Arg) string {
	table, ok := l.strings[lang]
	if !ok {
		table = l.strings[DefaultLang]
	}
	text, ok := table[key]
	if !ok {
		if text, ok = l.strings[DefaultLang][key]; !ok {
			text = key
		}
	}
	for _, a := range args {
		text = strings.ReplaceAll(text, "{"+a.Name+"}", a.Value)
	}
	return text
}

// Arg is one {placeholder} substitution.
type Arg struct {
	Name  string
	Value string
}

func arg(name string, value any) Arg {
	return Arg{Name: name, Value: fmt.Sprint(value)}
}
