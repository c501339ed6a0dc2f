package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// CSRF and content types
// ---------------------------------------------------------------------------

func TestClient_CSRFHeaderOnlyOnMutatingCalls(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.Header.Get("X-CSRFToken"))
		switch r.URL.Path {
		case "/api/users/me/":
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok123", Path: "/"})
			_, _ = io.WriteString(w, `{"id":7,"username":"amina","user_type":"pwd"}`)
		case "/api/tubonge-posts/9/like/":
			_, _ = io.WriteString(w, `{"liked":true,"like_count":3}`)
		}
	})

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("me: %v", err)
	}
	st, err := c.ToggleLike(context.Background(), "9")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !st.Liked || st.Count != 3 {
		t.Fatalf("unexpected like state: %+v", st)
	}

	if len(seen) != 2 || seen[0] != "GET " || seen[1] != "POST tok123" {
		t.Fatalf("unexpected csrf usage: %v", seen)
	}
}

func TestClient_MultipartLeavesContentTypeToTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
			t.Errorf("expected multipart content type, got %q", ct)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("title") != "Logo Design" || r.FormValue("price") != "3000" || r.FormValue("timeframe") != "2 weeks" {
			t.Errorf("unexpected form: %v", r.MultipartForm.Value)
		}
		if _, hdr, err := r.FormFile("document"); err != nil || hdr.Filename != "brief.pdf" {
			t.Errorf("expected document upload, got %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":41,"client":{"id":3,"username":"acme","user_type":"client"},"title":"Logo Design","price":"3000.00","timeframe":"2 weeks","status":"open","views":0}`)
	})

	l, err := c.CreateListing(context.Background(), domain.KindGig, ports.ListingInput{
		Title: "Logo Design", Description: "A logo", Price: 3000, Timeframe: "2 weeks",
		Document: &domain.Attachment{FileName: "brief.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.ID != "41" || l.Price != 3000 || l.OwnerID != "3" || l.Origin != domain.OriginAPI || l.Status != domain.StatusOpen {
		t.Fatalf("unexpected listing: %+v", l)
	}
}

func TestClient_JSONBodyHasJSONContentType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("expected json content type, got %q", ct)
		}
		_, _ = io.WriteString(w, `{"message":"Login successful","user":{"id":5,"email":"a@example.com","user_type":"client","client_type":"gig"}}`)
	})

	u, err := c.Login(context.Background(), ports.LoginInput{Email: "a@example.com", Password: "x", Role: domain.RoleClient})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != "5" || u.Role != domain.RoleClient || u.ClientType != domain.ClientTypeGig || u.DisplayName() != "a@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

func TestClient_ApplicationErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error key", http.StatusForbidden, `{"error":"Only PWD users can place bids"}`, "Only PWD users can place bids"},
		{"detail key", http.StatusNotFound, `{"detail":"Not found."}`, "Not found."},
		{"non field", http.StatusBadRequest, `{"non_field_errors":["Invalid email or password."]}`, "Invalid email or password."},
		{"field error", http.StatusBadRequest, `{"email":["A user with this email already exists."]}`, "email: A user with this email already exists."},
		{"empty object", http.StatusBadRequest, `{}`, "Request failed: 400"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := c.Me(context.Background())
			appErr, ok := domain.AsApplication(err)
			if !ok {
				t.Fatalf("expected ApplicationError, got %v", err)
			}
			if domain.IsConnectivity(err) {
				t.Fatalf("application error must not be classified as connectivity")
			}
			if appErr.Status != tc.status || appErr.Message != tc.want {
				t.Fatalf("got %d %q, want %d %q", appErr.Status, appErr.Message, tc.status, tc.want)
			}
		})
	}
}

func TestClient_UnreachableIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.Me(context.Background())
	if !errors.Is(err, domain.ErrConnectivity) {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
	var ce *domain.ConnectivityError
	if !errors.As(err, &ce) || ce.Op != "users.me" {
		t.Fatalf("expected ConnectivityError for users.me, got %v", err)
	}
}

func TestClient_NonJSONFailureIsConnectivity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>Bad Gateway</html>")
	})

	_, _, err := c.ListPosts(context.Background())
	if !domain.IsConnectivity(err) {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
}

func TestClient_TimeoutIsConnectivity(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.ListConversations(context.Background())
	if !domain.IsConnectivity(err) {
		t.Fatalf("expected timeout to be a connectivity failure, got %v", err)
	}
}

func TestClient_InvalidSuccessBodyIsApplicationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	_, err := c.Me(context.Background())
	if _, ok := domain.AsApplication(err); !ok {
		t.Fatalf("expected ApplicationError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func TestClient_ListPostsCollectsReferencedUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"count":1,"results":[{
			"id": 12,
			"author": {"id": 1, "username": "amina", "user_type": "pwd"},
			"text": "hello",
			"like_count": 1,
			"comments_count": 14,
			"likes": [{"id": 2, "username": "", "email": "bob@example.com", "user_type": "client"}],
			"comments": [{"id": 5, "post": 12, "author": {"id": 3, "username": "chris"}, "text": "hi"}],
			"created_at": "2026-03-01T10:00:00Z"
		}]}`)
	})

	posts, users, err := c.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "12" || p.AuthorName != "amina" || p.LikeCount() != 1 || !p.LikedBy("2") || p.CommentCount != 14 {
		t.Fatalf("unexpected post: %+v", p)
	}
	if len(p.Comments) != 1 || p.Comments[0].AuthorName != "chris" {
		t.Fatalf("unexpected comments: %+v", p.Comments)
	}

	names := map[string]string{}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	if names["1"] != "amina" || names["2"] != "bob@example.com" || names["3"] != "chris" {
		t.Fatalf("unexpected referenced users: %v", names)
	}
}

func TestClient_ServiceUsesDurationAndBookingCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "open" {
			t.Errorf("expected status filter, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"id":"s1","title":"Therapy","price":1500,"duration":"1 hour","status":"open","booking_count":4}]`)
	})

	items, err := c.ListListings(context.Background(), domain.KindService, domain.StatusOpen)
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(items) != 1 || items[0].Timeframe != "1 hour" || items[0].Engagements != 4 || items[0].Kind != domain.KindService {
		t.Fatalf("unexpected services: %+v", items)
	}
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}
