package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"geminify/apperr"
)

type setter func(s *Settings, value string) error

var setters = map[string]setter{
	"api_key": func(s *Settings, v string) error {
		s.APIKey = strings.TrimSpace(v)
		return nil
	},
	"model": func(s *Settings, v string) error {
		s.Model = strings.TrimSpace(v)
		return nil
	},
	"system_prompt": func(s *Settings, v string) error {
		s.SystemPrompt = v
		return nil
	},
	"temperature": func(s *Settings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		s.Temperature = f
		return nil
	},
	"max_tokens": func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		s.MaxTokens = n
		return nil
	},
	"locale": func(s *Settings, v string) error {
		s.Locale = strings.TrimSpace(v)
		return nil
	},
	"language_rewrite.enabled": boolSetter(func(s *Settings) *bool { return &s.LanguageRewrite.Enabled }),
	"language_rewrite.target_language": func(s *Settings, v string) error {
		s.LanguageRewrite.TargetLanguage = strings.ToLower(strings.TrimSpace(v))
		return nil
	},
	"language_rewrite.custom_language": func(s *Settings, v string) error {
		s.LanguageRewrite.CustomLanguage = strings.TrimSpace(v)
		return nil
	},
	"language_rewrite.preserve_formatting": boolSetter(func(s *Settings) *bool { return &s.LanguageRewrite.PreserveFormatting }),
	"language_rewrite.cultural_adaptation": boolSetter(func(s *Settings) *bool { return &s.LanguageRewrite.CulturalAdaptation }),
}

func boolSetter(field func(s *Settings) *bool) setter {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

// Keys は Set が受け付けるキーを名前順で返します。
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set は "key=value" 形式の1項目を s に書き込みます。範囲の確認は Validate で行います。
func Set(s *Settings, pair string) error {
	key, value, ok := strings.Cut(pair, "=")
	if !ok {
		return apperr.Validation(fmt.Sprintf("expected key=value, got %q", pair))
	}
	key = strings.ToLower(strings.TrimSpace(key))
	fn, ok := setters[key]
	if !ok {
		return apperr.Validation(fmt.Sprintf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", ")))
	}
	if err := fn(s, value); err != nil {
		return apperr.Validation(fmt.Sprintf("invalid value for %s: %v", key, err))
	}
	return nil
}
