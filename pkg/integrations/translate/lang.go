package translate

import (
	"strings"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

// Supported language codes.
const (
	Chinese  = "zh"
	English  = "en"
	Japanese = "ja"
)

var languageTokens = map[string]string{
	"中文": Chinese, "中": Chinese, "zh": Chinese,
	"英文": English, "英": English, "en": English,
	"日文": Japanese, "日": Japanese, "日语": Japanese, "ja": Japanese,
}

var displayNames = map[string]string{
	Chinese:  "中文",
	English:  "英文",
	Japanese: "日文",
}

// Languages lists the supported codes in display order.
var Languages = []string{Chinese, English, Japanese}

// ParseLanguage maps a user token such as 英文 or en to a language code.
func ParseLanguage(token string) (string, error) {
	if code, ok := languageTokens[strings.ToLower(strings.TrimSpace(token))]; ok {
		return code, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLanguage, "不支持的目标语言「%s」", token)
}

// DisplayName returns the Chinese name of a language code.
func DisplayName(code string) string {
	if n, ok := displayNames[code]; ok {
		return n
	}
	return code
}

// SupportedList returns the display names joined with 、.
func SupportedList() string {
	names := make([]string, len(Languages))
	for i, code := range Languages {
		names[i] = displayNames[code]
	}
	return strings.Join(names, "、")
}
