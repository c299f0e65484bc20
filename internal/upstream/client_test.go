package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/workspace"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second, nil)
}

func TestUnwrapAcceptsEnvelopeAndBare(t *testing.T) {
	enveloped, err := Unwrap[workspace.Created]([]byte(`{"data":{"id":"w1","slug":"pelada-fc"}}`))
	if err != nil {
		t.Fatalf("unwrap enveloped: %v", err)
	}
	bare, err := Unwrap[workspace.Created]([]byte(`{"id":"w1","slug":"pelada-fc"}`))
	if err != nil {
		t.Fatalf("unwrap bare: %v", err)
	}
	if enveloped.ID != bare.ID || enveloped.Slug != bare.Slug || bare.Slug != "pelada-fc" {
		t.Fatalf("shapes disagree: %+v vs %+v", enveloped, bare)
	}

	nullData, err := Unwrap[workspace.Created]([]byte(`{"data":null,"id":"w2"}`))
	if err != nil {
		t.Fatalf("unwrap null data: %v", err)
	}
	if nullData.ID != "w2" {
		t.Fatalf("expected bare fallback for null data, got %+v", nullData)
	}

	if _, err := Unwrap[workspace.Created](nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestCreateWorkspaceBypassesWorkspaceGate(t *testing.T) {
	var gotAuth, gotWorkspace string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/workspaces" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotWorkspace = r.Header.Get(headerWorkspace)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"w1","name":"Pelada de Sábado","slug":"pelada-de-sabado","role":"owner"}}`))
	})

	created, err := client.CreateWorkspace(context.Background(), "tok", workspace.Request{Name: "Pelada de Sábado"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if created.ID != "w1" || created.Slug != "pelada-de-sabado" {
		t.Fatalf("unexpected workspace %+v", created)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer credential, got %q", gotAuth)
	}
	if gotWorkspace != "" {
		t.Fatalf("bypass path must not attach a workspace, got %q", gotWorkspace)
	}
	if _, ok := gotBody["slug"]; ok {
		t.Fatalf("empty slug must be omitted, got %v", gotBody)
	}
}

func TestStandardPipelineRequiresWorkspace(t *testing.T) {
	calls := 0
	var gotWorkspace string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotWorkspace = r.Header.Get(headerWorkspace)
		_, _ = w.Write([]byte(`[]`))
	})

	if _, err := client.Get(context.Background(), "tok", "/players"); !errors.Is(err, ErrNoWorkspace) {
		t.Fatalf("expected ErrNoWorkspace, got %v", err)
	}
	if calls != 0 {
		t.Fatal("gate must reject before any network call")
	}

	ctx := WithWorkspace(context.Background(), "w1")
	if _, err := client.Get(ctx, "tok", "/players"); err != nil {
		t.Fatalf("scoped get: %v", err)
	}
	if gotWorkspace != "w1" {
		t.Fatalf("expected workspace header, got %q", gotWorkspace)
	}
}

func TestAccountPathsSkipGate(t *testing.T) {
	var gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(headerRequestID)
		_, _ = w.Write([]byte(`{"id":"u1","name":"5511988887777","phone":"5511988887777","role":"player"}`))
	})

	ctx := WithRequestID(context.Background(), "req-1")
	me, err := client.Me(ctx, "tok")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Phone != "5511988887777" {
		t.Fatalf("unexpected identity %+v", me)
	}
	if gotRequestID != "req-1" {
		t.Fatalf("expected request id propagated, got %q", gotRequestID)
	}
}

func TestUpdateProfileSendsName(t *testing.T) {
	var got identity.ProfileUpdate
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":{"id":"u1","name":"Carlos Souza"}}`))
	})

	updated, err := client.UpdateProfile(context.Background(), "tok", identity.ProfileUpdate{Name: "Carlos Souza"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if got.Name != "Carlos Souza" || updated.Name != "Carlos Souza" {
		t.Fatalf("unexpected round trip: sent %+v got %+v", got, updated)
	}
}

func TestErrorsCarryServerMessage(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"message":"nome já em uso"}`, "nome já em uso"},
		{`{"error":"slug inválido"}`, "slug inválido"},
		{`{"error":{"message":"limite atingido"}}`, "limite atingido"},
		{`<html>bad gateway</html>`, "fallback"},
	}
	for _, tc := range cases {
		body := tc.body
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(body))
		})
		_, err := client.CreateWorkspace(context.Background(), "tok", workspace.Request{Name: "Pelada"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
			t.Fatalf("expected APIError 422, got %v", err)
		}
		if got := UserMessage(err, "fallback"); got != tc.want {
			t.Fatalf("UserMessage for %s = %q, want %q", tc.body, got, tc.want)
		}
	}
}

func TestUserMessageFallsBackOnTransportErrors(t *testing.T) {
	if got := UserMessage(errors.New("dial tcp: refused"), "Tente novamente."); got != "Tente novamente." {
		t.Fatalf("unexpected message %q", got)
	}
}
