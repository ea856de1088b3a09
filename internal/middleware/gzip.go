package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// Tipos já comprimidos: PDF do extrato, PNG do QR code, planilha xlsx (zip).
var precompressed = []string{
	"image/",
	"application/pdf",
	"application/zip",
	"application/vnd.openxmlformats-officedocument.",
}

// compressible: sem Content-Type não comprime, senão o net/http farejaria os bytes já comprimidos.
func compressible(contentType string) bool {
	if contentType == "" {
		return false
	}
	for _, p := range precompressed {
		if strings.HasPrefix(contentType, p) {
			return false
		}
	}
	return true
}

type gzipWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
}

// WriteHeader decide pelo Content-Type já definido pelo handler se comprime ou não.
func (g *gzipWriter) WriteHeader(code int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true
	h := g.ResponseWriter.Header()
	if code != http.StatusNoContent && code != http.StatusNotModified && compressible(h.Get("Content-Type")) {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		g.gz = gzip.NewWriter(g.ResponseWriter)
	}
	h.Add("Vary", "Accept-Encoding")
	g.ResponseWriter.WriteHeader(code)
}

func (g *gzipWriter) Write(p []byte) (int, error) {
	if !g.wroteHeader {
		if h := g.ResponseWriter.Header(); h.Get("Content-Type") == "" {
			h.Set("Content-Type", http.DetectContentType(p))
		}
		g.WriteHeader(http.StatusOK)
	}
	if g.gz == nil {
		return g.ResponseWriter.Write(p)
	}
	return g.gz.Write(p)
}

func (g *gzipWriter) Close() error {
	if g.gz == nil {
		return nil
	}
	return g.gz.Close()
}

// Gzip comprime respostas JSON quando o cliente aceita gzip.
func Gzip(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gw := &gzipWriter{ResponseWriter: w}
		defer gw.Close()
		next.ServeHTTP(gw, r)
	})
}
