// Package langmeta is the language code registry used to validate
// language codes and to name languages in provider prompts.
package langmeta

import "strings"

// Meta describes one language.
type Meta struct {
	// English is the English name, used in prompts ("Translate from French").
	English string
	// Native is the endonym, used in CLI listings.
	Native string
}

// Registry contains canonical language metadata keyed by canonical code.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"af":    {English: "Afrikaans", Native: "Afrikaans"},
	"ar":    {English: "Arabic", Native: "العربية"},
	"az":    {English: "Azerbaijani", Native: "Azərbaycanca"},
	"be":    {English: "Belarusian", Native: "Беларуская"},
	"bg":    {English: "Bulgarian", Native: "Български"},
	"bn":    {English: "Bengali", Native: "বাংলা"},
	"ca":    {English: "Catalan", Native: "Català"},
	"cs":    {English: "Czech", Native: "Čeština"},
	"cy":    {English: "Welsh", Native: "Cymraeg"},
	"da":    {English: "Danish", Native: "Dansk"},
	"de":    {English: "German", Native: "Deutsch"},
	"el":    {English: "Greek", Native: "Ελληνικά"},
	"en":    {English: "English", Native: "English"},
	"en-GB": {English: "English (UK)", Native: "English (UK)"},
	"en-US": {English: "English (US)", Native: "English (US)"},
	"eo":    {English: "Esperanto", Native: "Esperanto"},
	"es":    {English: "Spanish", Native: "Español"},
	"es-MX": {English: "Spanish (Mexico)", Native: "Español (México)"},
	"et":    {English: "Estonian", Native: "Eesti"},
	"eu":    {English: "Basque", Native: "Euskara"},
	"fa":    {English: "Persian", Native: "فارسی"},
	"fi":    {English: "Finnish", Native: "Suomi"},
	"fr":    {English: "French", Native: "Français"},
	"fr-CA": {English: "French (Canada)", Native: "Français (Canada)"},
	"ga":    {English: "Irish", Native: "Gaeilge"},
	"gl":    {English: "Galician", Native: "Galego"},
	"gu":    {English: "Gujarati", Native: "ગુજરાતી"},
	"he":    {English: "Hebrew", Native: "עברית"},
	"hi":    {English: "Hindi", Native: "हिन्दी"},
	"hr":    {English: "Croatian", Native: "Hrvatski"},
	"hu":    {English: "Hungarian", Native: "Magyar"},
	"hy":    {English: "Armenian", Native: "Հայերեն"},
	"id":    {English: "Indonesian", Native: "Bahasa Indonesia"},
	"is":    {English: "Icelandic", Native: "Íslenska"},
	"it":    {English: "Italian", Native: "Italiano"},
	"ja":    {English: "Japanese", Native: "日本語"},
	"ka":    {English: "Georgian", Native: "ქართული"},
	"kk":    {English: "Kazakh", Native: "Қазақ тілі"},
	"ko":    {English: "Korean", Native: "한국어"},
	"lt":    {English: "Lithuanian", Native: "Lietuvių"},
	"lv":    {English: "Latvian", Native: "Latviešu"},
	"mk":    {English: "Macedonian", Native: "Македонски"},
	"ms":    {English: "Malay", Native: "Bahasa Melayu"},
	"nb":    {English: "Norwegian Bokmål", Native: "Norsk bokmål"},
	"nl":    {English: "Dutch", Native: "Nederlands"},
	"no":    {English: "Norwegian", Native: "Norsk"},
	"pa":    {English: "Punjabi", Native: "ਪੰਜਾਬੀ"},
	"pl":    {English: "Polish", Native: "Polski"},
	"pt":    {English: "Portuguese", Native: "Português"},
	"pt-BR": {English: "Portuguese (Brazil)", Native: "Português (Brasil)"},
	"ro":    {English: "Romanian", Native: "Română"},
	"ru":    {English: "Russian", Native: "Русский"},
	"sk":    {English: "Slovak", Native: "Slovenčina"},
	"sl":    {English: "Slovenian", Native: "Slovenščina"},
	"sq":    {English: "Albanian", Native: "Shqip"},
	"sr":    {English: "Serbian", Native: "Српски"},
	"sv":    {English: "Swedish", Native: "Svenska"},
	"sw":    {English: "Swahili", Native: "Kiswahili"},
	"ta":    {English: "Tamil", Native: "தமிழ்"},
	"th":    {English: "Thai", Native: "ไทย"},
	"tl":    {English: "Tagalog", Native: "Tagalog"},
	"tr":    {English: "Turkish", Native: "Türkçe"},
	"uk":    {English: "Ukrainian", Native: "Українська"},
	"ur":    {English: "Urdu", Native: "اردو"},
	"uz":    {English: "Uzbek", Native: "O'zbek"},
	"vi":    {English: "Vietnamese", Native: "Tiếng Việt"},
	"zh":    {English: "Chinese", Native: "中文"},
	"zh-CN": {English: "Chinese (Simplified)", Native: "简体中文"},
	"zh-TW": {English: "Chinese (Traditional)", Native: "繁體中文"},
	"zu":    {English: "Zulu", Native: "isiZulu"},
}

// Canonicalize normalizes a language code: trims it, turns "_" into "-",
// lowercases the base and uppercases the region ("pt_br" -> "pt-BR").
func Canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Base returns the language part of a code ("pt-BR" -> "pt").
func Base(lang string) string {
	c := Canonicalize(lang)
	if i := strings.IndexByte(c, '-'); i >= 0 {
		return c[:i]
	}
	return c
}

// SameLanguage reports whether two codes name the same base language,
// so "en" and "en-GB" are treated as equal for skip decisions.
func SameLanguage(a, b string) bool {
	return a != "" && Base(a) == Base(b)
}

// Known reports whether the code or its base language is in the registry.
func Known(lang string) bool {
	c := Canonicalize(lang)
	if _, ok := Registry[c]; ok {
		return true
	}
	_, ok := Registry[Base(c)]
	return ok
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like pt_BR and falling back to the base language.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := Canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{English: lang, Native: lang}
}

// EnglishName returns the English name for a code, or the code itself.
func EnglishName(lang string) string {
	return Resolve(lang).English
}
