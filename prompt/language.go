package prompt

import (
	"sort"
	"strings"

	"geminify/apperr"
	"geminify/settings"
)

// CustomLanguage はユーザーが任意の言語名を入力する場合の翻訳先コードです。
const CustomLanguage = "custom"

// Language は言語カタログの1項目です。
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Family string `json:"family,omitempty"`
}

var languageNames = map[string]string{
	"english":     "English",
	"turkish":     "Türkçe",
	"spanish":     "Español",
	"french":      "Français",
	"german":      "Deutsch",
	"italian":     "Italiano",
	"portuguese":  "Português",
	"russian":     "Русский",
	"chinese":     "中文",
	"japanese":    "日本語",
	"korean":      "한국어",
	"arabic":      "العربية",
	"hindi":       "हिन्दी",
	"dutch":       "Nederlands",
	"swedish":     "Svenska",
	"norwegian":   "Norsk",
	"danish":      "Dansk",
	"polish":      "Polski",
	"czech":       "Čeština",
	"hungarian":   "Magyar",
	"romanian":    "Română",
	"bulgarian":   "Български",
	"greek":       "Ελληνικά",
	"hebrew":      "עברית",
	"finnish":     "Suomi",
	"estonian":    "Eesti",
	"latvian":     "Latviešu",
	"lithuanian":  "Lietuvių",
	"slovenian":   "Slovenščina",
	"slovak":      "Slovenčina",
	"croatian":    "Hrvatski",
	"serbian":     "Српски",
	"bosnian":     "Bosanski",
	"montenegrin": "Crnogorski",
	"albanian":    "Shqip",
	"macedonian":  "Македонски",
	"thai":        "ไทย",
	"vietnamese":  "Tiếng Việt",
	"indonesian":  "Bahasa Indonesia",
	"malay":       "Bahasa Melayu",
	"filipino":    "Filipino",
	"swahili":     "Kiswahili",
	"afrikaans":   "Afrikaans",
}

// 言語ファミリー。hungarian は Slavic と Finno-Ugric の両方に含まれるため、
// Family は familyOrder の順で最初に見つかったものを返します。
var languageFamilies = map[string][]string{
	"Germanic":      {"english", "german", "dutch", "swedish", "norwegian", "danish", "afrikaans"},
	"Romance":       {"spanish", "french", "italian", "portuguese", "romanian"},
	"Slavic":        {"russian", "polish", "czech", "hungarian", "bulgarian", "serbian", "croatian", "bosnian", "slovenian", "slovak", "montenegrin", "macedonian"},
	"Turkic":        {"turkish"},
	"Sino-Tibetan":  {"chinese"},
	"Japonic":       {"japanese"},
	"Koreanic":      {"korean"},
	"Semitic":       {"arabic", "hebrew"},
	"Indo-Aryan":    {"hindi"},
	"Finno-Ugric":   {"finnish", "estonian", "hungarian"},
	"Baltic":        {"latvian", "lithuanian"},
	"Hellenic":      {"greek"},
	"Albanian":      {"albanian"},
	"Tai-Kadai":     {"thai"},
	"Austroasiatic": {"vietnamese"},
	"Austronesian":  {"indonesian", "malay", "filipino"},
	"Niger-Congo":   {"swahili"},
}

var familyOrder = []string{
	"Germanic", "Romance", "Slavic", "Turkic", "Sino-Tibetan", "Japonic", "Koreanic", "Semitic",
	"Indo-Aryan", "Finno-Ugric", "Baltic", "Hellenic", "Albanian", "Tai-Kadai", "Austroasiatic",
	"Austronesian", "Niger-Congo",
}

var familyHints = map[string]string{
	"Sino-Tibetan": " Use appropriate honorifics and formal language structure.",
	"Japonic":      " Use appropriate keigo (honorific language) when the context requires formality.",
	"Semitic":      " Ensure proper right-to-left text flow and cultural sensitivity.",
	"Turkic":       " Use appropriate formal/informal language based on context.",
}

var suggestedLanguages = []string{
	"english", "spanish", "french", "german", "italian", "portuguese", "russian",
	"chinese", "japanese", "korean", "arabic", "hindi", "turkish",
}

// Languages はカタログ全体をコード順で返します。
func Languages() []Language {
	out := make([]Language, 0, len(languageNames))
	for code, name := range languageNames {
		out = append(out, Language{Code: code, Name: name, Family: Family(code)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// SuggestedLanguages はよく使われる翻訳先を返します。
func SuggestedLanguages() []string {
	return append([]string(nil), suggestedLanguages...)
}

// DisplayName はコードに対応する言語名を返します。未知のコードはそのまま返します。
func DisplayName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	if code == CustomLanguage {
		return "Custom Language"
	}
	return code
}

// Family は言語ファミリー名を返します。該当しなければ空文字列です。
func Family(code string) string {
	for _, family := range familyOrder {
		for _, member := range languageFamilies[family] {
			if member == code {
				return family
			}
		}
	}
	return ""
}

// normalizeLanguage は翻訳先コードとカスタム言語名の前後の空白を除きます。コードは小文字にします。
func normalizeLanguage(lang settings.LanguageRewrite) settings.LanguageRewrite {
	lang.TargetLanguage = strings.ToLower(strings.TrimSpace(lang.TargetLanguage))
	lang.CustomLanguage = strings.TrimSpace(lang.CustomLanguage)
	return lang
}

// ValidateLanguage は翻訳モードが有効な場合に翻訳先が解決できるかを確認します。
func ValidateLanguage(lang settings.LanguageRewrite) error {
	if !lang.Enabled {
		return nil
	}
	lang = normalizeLanguage(lang)
	if lang.TargetLanguage == "" {
		return apperr.Config("target language is required when language rewrite is enabled")
	}
	if lang.TargetLanguage == CustomLanguage && lang.CustomLanguage == "" {
		return apperr.Config(`custom language name is required when "custom" is selected`)
	}
	return nil
}

// TargetName は翻訳先の表示名を返します。無効または解決できない場合は空文字列です。
func TargetName(lang settings.LanguageRewrite) string {
	if ValidateLanguage(lang) != nil || !lang.Enabled {
		return ""
	}
	lang = normalizeLanguage(lang)
	if lang.TargetLanguage == CustomLanguage {
		return lang.CustomLanguage
	}
	return DisplayName(lang.TargetLanguage)
}

// Indicator は翻訳モード表示用の短いラベルを返します。
func Indicator(lang settings.LanguageRewrite) string {
	name := TargetName(lang)
	if name == "" {
		return ""
	}
	return "🌍 → " + name
}

func languageDirective(lang settings.LanguageRewrite) (string, error) {
	if !lang.Enabled {
		return "", nil
	}
	if err := ValidateLanguage(lang); err != nil {
		return "", err
	}
	lang = normalizeLanguage(lang)

	var b strings.Builder
	b.WriteString("\n\nIMPORTANT: Rewrite the text in ")
	b.WriteString(TargetName(lang))
	b.WriteString(". Maintain the original meaning and tone while translating accurately.")
	if lang.CulturalAdaptation {
		b.WriteString(" Adapt cultural references and expressions appropriately for the target language and culture.")
	}
	if lang.PreserveFormatting {
		b.WriteString(" Preserve all formatting, including markdown syntax, lists, headers, and links.")
	}
	if hint, ok := familyHints[Family(lang.TargetLanguage)]; ok {
		b.WriteString(hint)
	}
	return b.String(), nil
}
