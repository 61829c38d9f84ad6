package locale

import "strings"

type Code string

const (
	English Code = "en-US"
	Hindi   Code = "hi-IN"
)

// Language is the static voice configuration for one locale.
type Language struct {
	Code     Code
	Voice    string
	Greeting string
	Fallback string
}

var languages = map[Code]Language{
	English: {
		Code:     English,
		Voice:    "Polly.Joanna",
		Greeting: "Welcome to the Chameli Devi Group of Institutions bus service. How can I help you find your bus today?",
		Fallback: "Sorry, something went wrong. Please try again.",
	},
	Hindi: {
		Code:     Hindi,
		Voice:    "Polly.Aditi",
		Greeting: "चमेली देवी ग्रुप ऑफ इंस्टीट्यूशंस बस सेवा में आपका स्वागत है। मैं आपकी बस ढूंढने में कैसे मदद कर सकती हूँ?",
		Fallback: "क्षमा करें, कुछ गलत हो गया। कृपया फिर से प्रयास करें।",
	},
}

// FromDigit maps the language menu keypress to a locale.
func FromDigit(digit string) (Language, bool) {
	switch strings.TrimSpace(digit) {
	case "1":
		return languages[English], true
	case "2":
		return languages[Hindi], true
	default:
		return Language{}, false
	}
}

func Lookup(code string) (Language, bool) {
	l, ok := languages[Code(strings.TrimSpace(code))]
	return l, ok
}

// LookupOrDefault falls back to English for unknown codes.
func LookupOrDefault(code string) Language {
	if l, ok := Lookup(code); ok {
		return l
	}
	return languages[English]
}
