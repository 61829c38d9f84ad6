package voice

import (
	"net/url"

	"github.com/twilio/twilio-go/twiml"

	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
)

const (
	pathVoice   = "/voice"
	pathRespond = "/respond"

	menuEnglish     = "For English, press 1."
	menuHindi       = "हिंदी के लिए, 2 दबाएँ।"
	invalidChoice   = "Invalid selection."
	callNotFoundMsg = "Sorry, there was a system error. Please call again."
)

func respondURL(code locale.Code) string {
	return pathRespond + "?" + url.Values{"lang": {string(code)}}.Encode()
}

// languageMenu asks for one digit and loops back to /voice when nothing is
// pressed.
func languageMenu() []twiml.Element {
	hindi := locale.LookupOrDefault(string(locale.Hindi))
	gather := &twiml.VoiceGather{
		NumDigits: "1",
		Action:    pathVoice,
		Method:    "POST",
		InnerElements: []twiml.Element{
			&twiml.VoiceSay{Message: menuEnglish, Language: string(locale.English)},
			&twiml.VoiceSay{Message: menuHindi, Language: string(locale.Hindi), Voice: hindi.Voice},
		},
	}
	return []twiml.Element{gather, &twiml.VoiceRedirect{Url: pathVoice}}
}

func invalidSelection() []twiml.Element {
	return []twiml.Element{
		&twiml.VoiceSay{Message: invalidChoice, Language: string(locale.English)},
		&twiml.VoiceRedirect{Url: pathVoice},
	}
}

// speechGather listens for the caller in lang. prompt is spoken inside the
// gather so the caller can barge in; it may be empty.
func speechGather(lang locale.Language, prompt string) *twiml.VoiceGather {
	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        respondURL(lang.Code),
		SpeechTimeout: "auto",
		Language:      string(lang.Code),
	}
	if prompt != "" {
		gather.InnerElements = []twiml.Element{say(lang, prompt)}
	}
	return gather
}

func say(lang locale.Language, text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: text, Voice: lang.Voice, Language: string(lang.Code)}
}

func greeting(lang locale.Language) []twiml.Element {
	return []twiml.Element{
		speechGather(lang, lang.Greeting),
		&twiml.VoiceRedirect{Url: respondURL(lang.Code)},
	}
}

func callNotFound(code locale.Code) []twiml.Element {
	return []twiml.Element{
		&twiml.VoiceSay{Message: callNotFoundMsg, Language: string(code)},
		&twiml.VoiceHangup{},
	}
}
