package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/otaviolbarbosa/nascere/internal/auth"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret-min-32-chars-long!!!!")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(testSecret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserIDFrom(r.Context()) != "user-1" {
			t.Errorf("claims não propagadas")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"sem header", "", http.StatusUnauthorized},
		{"sem bearer", "Basic abc", http.StatusUnauthorized},
		{"token inválido", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: code = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}

	tok, err := auth.BuildJWT(testSecret, "user-1", "a@b.c", auth.UserMetadata{}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("token válido: code = %d", rec.Code)
	}
}

func TestRequireUserType(t *testing.T) {
	mw := RequireUserType(auth.UserTypeProfessional)(okHandler())
	cases := []struct {
		userType string
		want     int
	}{
		{auth.UserTypeProfessional, http.StatusOK},
		{"", http.StatusOK},
		{auth.UserTypePatient, http.StatusForbidden},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserMetadata: auth.UserMetadata{UserType: c.userType}}))
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Errorf("user_type %q: code = %d, want %d", c.userType, rec.Code, c.want)
		}
	}
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("sem claims: code = %d", rec.Code)
	}
}

func TestRecover(t *testing.T) {
	h := RequestID(Recover(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body não é JSON: %v", err)
	}
	if body["request_id"] == "" || body["request_id"] != rec.Header().Get("X-Request-ID") {
		t.Errorf("request_id ausente ou divergente: %v", body)
	}
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("request id = %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestID_ReplacesInvalid(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc\n123 <script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 36 {
		t.Fatalf("esperava uuid novo, veio %q", seen)
	}
}

func TestTimeout_MultipartGetsLongerDeadline(t *testing.T) {
	var remaining time.Duration
	h := Timeout(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, _ := r.Context().Deadline()
		remaining = time.Until(dl)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if remaining <= 2*time.Second {
		t.Fatalf("deadline de upload = %v", remaining)
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	h := Timeout(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); !ok {
			t.Error("contexto sem deadline")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	noop := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("timeout 0 não deveria impor deadline")
		}
	}))
	noop.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"https://app.nascere.com.br"})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "https://app.nascere.com.br")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight code = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.nascere.com.br" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight sem Allow-Methods")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("origem não permitida não deve receber allow-origin")
	}
}

func TestGzip(t *testing.T) {
	h := Gzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q", rec.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(zr)
	if string(b) != `{"ok":true}` {
		t.Errorf("body = %q", b)
	}
}

func TestGzip_SkipsPDF(t *testing.T) {
	h := Gzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.3"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("PDF não deveria ser comprimido")
	}
	if rec.Body.String() != "%PDF-1.3" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGzip_MissingContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	cases := []struct {
		name     string
		handler  http.HandlerFunc
		wantType string
	}{
		{"sniffed on write", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(png)
		}, "image/png"},
		{"explicit header without type", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(png)
		}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Encoding", "gzip")
			rec := httptest.NewRecorder()
			Gzip(c.handler).ServeHTTP(rec, req)
			if rec.Header().Get("Content-Encoding") != "" {
				t.Fatalf("sem Content-Type não deveria comprimir")
			}
			if c.wantType != "" && rec.Header().Get("Content-Type") != c.wantType {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
			if !bytes.Equal(rec.Body.Bytes(), png) {
				t.Errorf("body = %q", rec.Body.Bytes())
			}
		})
	}
}

func TestAccessLog_PassesStatus(t *testing.T) {
	h := AccessLog(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("code = %d", rec.Code)
	}
}
