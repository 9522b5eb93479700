// Package moderation проверяет пользовательский текст (комментарии к отзывам)
package moderation

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

const (
	FlagContact   = "contact_info"
	FlagProfanity = "profanity"
	FlagSolicit   = "off_platform_payment"
)

var (
	phonePattern  = regexp.MustCompile(`(?:\+?\d[\s\-()]*){9,}`)
	emailPattern  = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+`)
	handlePattern = regexp.MustCompile(`(?i)(?:t\.me/|telegram\.me/|@)[a-z0-9_]{4,}`)
)

// KeywordReviewer словарная проверка без внешних сервисов
type KeywordReviewer struct {
	terms map[string][]string // слово -> флаги
}

func NewKeywordReviewer() *KeywordReviewer {
	r := &KeywordReviewer{terms: map[string][]string{}}
	r.add(FlagProfanity, "fuck", "shit", "bitch", "бля", "сука", "хуй", "пизд")
	r.add(FlagSolicit, "venmo", "paypal", "momo", "zalopay", "наличными", "cash only", "pay me directly")
	return r
}

func (r *KeywordReviewer) add(flag string, words ...string) {
	for _, w := range words {
		r.terms[w] = append(r.terms[w], flag)
	}
}

func (r *KeywordReviewer) ReviewText(_ context.Context, text string) (model.ContentVerdict, error) {
	flags := map[string]struct{}{}

	lower := strings.ToLower(text)
	normalized := strings.Join(strings.FieldsFunc(lower, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}), " ")

	for term, termFlags := range r.terms {
		if strings.Contains(normalized, term) {
			for _, f := range termFlags {
				flags[f] = struct{}{}
			}
		}
	}

	if phonePattern.MatchString(text) || emailPattern.MatchString(text) || handlePattern.MatchString(text) {
		flags[FlagContact] = struct{}{}
	}

	if len(flags) == 0 {
		return model.ContentVerdict{IsSafe: true}, nil
	}

	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return model.ContentVerdict{IsSafe: false, Flags: out}, nil
}
