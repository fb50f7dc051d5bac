package reply

import "strings"

// Supported speech-synthesis language tags.
const (
	LangEnglish    = "en-US"
	LangVietnamese = "vi-VN"
)

// viDiacritics are letters that only occur in Vietnamese orthography.
const viDiacritics = "ăâđêôơưạảấầẩẫậắằẳẵặẹẻẽềểễệịọỏốồổỗộớờởỡợụủứừửữựỳỵỷỹ"

// viKeywords are common Vietnamese words checked as whole words, since
// fragments like "em" or "anh" also occur inside English words.
var viKeywords = []string{"chào", "cảm ơn", "vui lòng", "em", "anh", "chị", "không"}

// DetectLanguage picks the speech voice language for a sanitized reply.
// Vietnamese diacritics or keywords select Vietnamese; otherwise the
// session's configured language decides, defaulting to English.
func DetectLanguage(text, sessionLang string) string {
	t := strings.ToLower(text)
	if strings.ContainsAny(t, viDiacritics) {
		return LangVietnamese
	}
	padded := " " + strings.NewReplacer(",", " ", ".", " ", "!", " ", "?", " ").Replace(t) + " "
	for _, kw := range viKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return LangVietnamese
		}
	}
	return normalizeLang(sessionLang)
}

func normalizeLang(lang string) string {
	switch {
	case strings.HasPrefix(strings.ToLower(lang), "vi"):
		return LangVietnamese
	default:
		return LangEnglish
	}
}
