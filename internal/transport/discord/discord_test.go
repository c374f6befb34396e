package discord

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kit "remindbot/internal/transport"
	"remindbot/internal/transport/router"
	logx "remindbot/pkg/logx"
)

type recordingHandler struct {
	got   *kit.Invocation
	reply string
}

func (h *recordingHandler) Handle(_ context.Context, inv *kit.Invocation) kit.Reply {
	h.got = inv
	return kit.Reply{Content: h.reply}
}

func post(t *testing.T, h http.Handler, body string, hdr http.Header) (*httptest.ResponseRecorder, InteractionResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body))
	for k, v := range hdr {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp InteractionResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestPingPong(t *testing.T) {
	t.Parallel()
	a := New(Config{}, logx.Nop(), nil)
	_, resp := post(t, a.Routes(&recordingHandler{}), `{"type":1}`, nil)
	if resp.Type != ResponsePong || resp.Data != nil {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestApplicationCommand(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{reply: "done"}
	a := New(Config{}, logx.Nop(), nil)

	body := `{"id":"i1","type":2,"channel_id":"c9",
		"member":{"user":{"id":"42","username":"alice"}},
		"data":{"name":"remindat","options":[
			{"name":"event","type":3,"value":"Launch"},
			{"name":"year","type":4,"value":2099},
			{"name":"month","type":4,"value":0},
			{"name":"date","type":4,"value":1}]}}`
	_, resp := post(t, a.Routes(h), body, nil)

	if resp.Type != ResponseChannelMessageWithSource || resp.Data == nil || resp.Data.Content != "done" {
		t.Fatalf("resp = %+v", resp)
	}
	inv := h.got
	if inv.Platform != kit.PlatformDiscord || inv.Command != "remindat" || inv.ChannelID != "c9" {
		t.Fatalf("inv = %+v", inv)
	}
	if inv.Mention != "<@42>" || inv.Username != "alice" {
		t.Fatalf("user = %q %q", inv.Mention, inv.Username)
	}
	if inv.Options["year"] != "2099" || inv.Options["month"] != "0" || inv.Options["event"] != "Launch" {
		t.Fatalf("options = %v", inv.Options)
	}
}

func TestInvalidInteractions(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{reply: "never"}
	a := New(Config{}, logx.Nop(), nil)
	bodies := []string{
		`not json`,
		`{}`,
		`{"type":2,"channel_id":"c","member":{"user":{"id":"1"}}}`,
		`{"type":2,"channel_id":"c","data":{"name":"remindin"}}`,
		`{"type":2,"member":{"user":{"id":"1"}},"data":{"name":"remindin"}}`,
		`{"type":3}`,
	}
	for _, b := range bodies {
		_, resp := post(t, a.Routes(h), b, nil)
		if resp.Type != ResponseChannelMessageWithSource || resp.Data.Content != router.InvalidInteraction {
			t.Errorf("%s: resp = %+v", b, resp)
		}
	}
	if h.got != nil {
		t.Fatal("handler called for an invalid interaction")
	}
}

func TestSignatureVerification(t *testing.T) {
	t.Parallel()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	a := New(Config{PublicKey: pub, VerifySignatures: true}, logx.Nop(), nil)
	routes := a.Routes(&recordingHandler{})

	body := `{"type":1}`
	ts := "1700000000"
	sig := ed25519.Sign(priv, []byte(ts+body))
	good := http.Header{}
	good.Set(headerSignature, hex.EncodeToString(sig))
	good.Set(headerTimestamp, ts)

	rec, resp := post(t, routes, body, good)
	if rec.Code != http.StatusOK || resp.Type != ResponsePong {
		t.Fatalf("signed ping: code=%d resp=%+v", rec.Code, resp)
	}

	bad := good.Clone()
	bad.Set(headerTimestamp, "1700000001")
	rec, _ = post(t, routes, body, bad)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Bad request signature") {
		t.Fatalf("tampered: code=%d body=%q", rec.Code, rec.Body.String())
	}

	rec, _ = post(t, routes, body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned: code=%d", rec.Code)
	}
}

func TestGetRoutes(t *testing.T) {
	t.Parallel()
	routes := New(Config{AppID: "app1"}, logx.Nop(), nil).Routes(&recordingHandler{})
	for path, want := range map[string]string{"/": "Hello, World!, app1", "/hi": "hello", "/healthz": "ok"} {
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Errorf("GET %s = %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestOptionString(t *testing.T) {
	t.Parallel()
	tests := map[string]string{`"x y"`: "x y", `12`: "12", `true`: "true", ``: "", `null`: ""}
	for raw, want := range tests {
		if got := (CommandOption{Value: json.RawMessage(raw)}).String(); got != want {
			t.Errorf("String(%s) = %q, want %q", raw, got, want)
		}
	}
}

func TestClientCreateMessage(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth, gotCT, gotUA, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"id":"m1","channel_id":"c1","content":"hi"}`)
	}))
	defer srv.Close()

	a := New(Config{}, logx.Nop(), NewClient("tok", WithAPIBase(srv.URL+"/api/v10")))
	ref, err := a.SendText(context.Background(), "c1", "hi", nil)
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if ref.MessageID != "m1" || ref.Platform != kit.PlatformDiscord {
		t.Fatalf("ref = %+v", ref)
	}
	if gotPath != "POST /api/v10/channels/c1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bot tok" || gotCT != "application/json; charset=UTF-8" || gotUA != DefaultUserAgent {
		t.Fatalf("headers = %q %q %q", gotAuth, gotCT, gotUA)
	}
	if strings.TrimSpace(gotBody) != `{"content":"hi"}` {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestClientErrorsAndInstall(t *testing.T) {
	t.Parallel()
	var got []ApplicationCommand
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		if strings.Contains(r.URL.Path, "channels") {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"message":"Missing Access","code":50001}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient("tok", WithAPIBase(srv.URL))
	_, err := c.CreateMessage(context.Background(), "c1", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("err = %v", err)
	}

	if err := c.InstallGlobalCommands(context.Background(), "app1", Commands()); err != nil {
		t.Fatalf("InstallGlobalCommands: %v", err)
	}
	if method != http.MethodPut || path != "/applications/app1/commands" {
		t.Fatalf("request = %s %s", method, path)
	}
	if len(got) != 3 || got[0].Name != "remindat" || got[1].Name != "remindin" {
		t.Fatalf("commands = %+v", got)
	}
	month := got[0].Options[2]
	if month.Name != "month" || len(month.Choices) != 12 || month.Choices[11].Name != "December" || month.Choices[11].Value != 11 {
		t.Fatalf("month option = %+v", month)
	}
	if got[0].Options[0].MaxLength != 30 || got[1].Options[1].Name != "minutes" || !got[1].Options[1].Required {
		t.Fatalf("options = %+v", got)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	a := New(Config{ListenAddr: "127.0.0.1:0"}, logx.Nop(), nil)
	if err := a.Start(context.Background(), &recordingHandler{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + a.Addr() + "/hi")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(b) != "hello" {
		t.Fatalf("body = %q", b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.Addr() != "" {
		t.Fatal("addr not cleared")
	}
}
