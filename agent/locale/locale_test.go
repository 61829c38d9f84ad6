package locale

import "testing"

func TestFromDigit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		digit     string
		wantOK    bool
		wantCode  Code
		wantVoice string
	}{
		{digit: "1", wantOK: true, wantCode: English, wantVoice: "Polly.Joanna"},
		{digit: "2", wantOK: true, wantCode: Hindi, wantVoice: "Polly.Aditi"},
		{digit: "3", wantOK: false},
		{digit: "#", wantOK: false},
		{digit: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := FromDigit(tt.digit)
		if ok != tt.wantOK {
			t.Fatalf("FromDigit(%q) ok = %v, want %v", tt.digit, ok, tt.wantOK)
		}
		if !ok {
			continue
		}
		if got.Code != tt.wantCode || got.Voice != tt.wantVoice {
			t.Fatalf("FromDigit(%q) = %+v", tt.digit, got)
		}
		if got.Greeting == "" || got.Fallback == "" {
			t.Fatalf("FromDigit(%q) has empty prompts", tt.digit)
		}
	}
}

func TestLookupOrDefault(t *testing.T) {
	t.Parallel()

	if got := LookupOrDefault("hi-IN"); got.Code != Hindi {
		t.Fatalf("LookupOrDefault(hi-IN) = %s", got.Code)
	}
	if got := LookupOrDefault("fr-FR"); got.Code != English {
		t.Fatalf("LookupOrDefault(fr-FR) = %s", got.Code)
	}
}
