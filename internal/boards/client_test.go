package boards

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchURLRemotive(t *testing.T) {
	got, err := SearchURL(BoardRemotive, "site reliability engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://remotive.com/api/remote-jobs?search=site+reliability+engineer"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSearchURLUnknownBoard(t *testing.T) {
	if _, err := SearchURL("linkedin", "x"); err == nil {
		t.Fatal("expected error for unknown board")
	}
}

func TestBaseURL(t *testing.T) {
	got, err := BaseURL(BoardMuse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://www.themuse.com" {
		t.Fatalf("unexpected base url: %s", got)
	}
}

func TestCompanySlug(t *testing.T) {
	cases := map[string]string{
		"Acme Robotics":      "acme-robotics",
		"  Acme  Robotics  ": "acme-robotics",
		"O'Reilly & Co.":     "o-reilly-co",
		"ACME":               "acme",
		"":                   "",
	}
	for name, want := range cases {
		if got := CompanySlug(name); got != want {
			t.Fatalf("CompanySlug(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestFetchJSONSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"jobs": []}`))
	}))
	defer srv.Close()

	body, err := FetchJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(body) != `{"jobs": []}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("unexpected user agent: %s", gotUA)
	}
}

func TestFetchJSONNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := FetchJSON(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 429 response")
	}
}
