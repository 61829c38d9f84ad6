package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{AuthToken: "tok"}); err == nil {
		t.Fatal("expected error for missing account sid")
	}
	if _, err := NewClient(Config{AccountSID: "AC123"}); err == nil {
		t.Fatal("expected error for missing auth token")
	}
}

func TestSendMessagePostsForm(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sid":"SM123","status":"queued"}`)
	}))
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	client, err := NewClient(
		Config{AccountSID: "AC123", AuthToken: "tok"},
		WithTransport(rewriteTransport{target: target}),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	sid, err := client.SendMessage(context.Background(), "whatsapp:+14155238886", "whatsapp:+919999999999", "Bus 7")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if sid != "SM123" {
		t.Fatalf("sid = %q", sid)
	}
	if !strings.HasSuffix(gotPath, "/Accounts/AC123/Messages.json") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotForm.Get("To") != "whatsapp:+919999999999" || gotForm.Get("From") != "whatsapp:+14155238886" {
		t.Fatalf("unexpected form: %v", gotForm)
	}
	if gotForm.Get("Body") != "Bus 7" {
		t.Fatalf("body = %q", gotForm.Get("Body"))
	}
}

type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = rt.target.Scheme
	clone.URL.Host = rt.target.Host
	clone.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func TestSendMessageCanceledContext(t *testing.T) {
	t.Parallel()

	client := MustNew(Config{AccountSID: "AC123", AuthToken: "tok"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.SendMessage(ctx, "a", "b", "c"); err == nil {
		t.Fatal("expected context error")
	}
}
