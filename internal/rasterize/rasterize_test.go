package rasterize

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProduceReturnsPDF(t *testing.T) {
	var gotBody string
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	c, err := NewChromiumClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewChromiumClient() error: %v", err)
	}
	pdf, err := c.Produce(context.Background(), "<html>doc</html>")
	if err != nil {
		t.Fatalf("Produce() error: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Fatalf("Produce() = %q, want PDF bytes", pdf)
	}
	if gotPath != "/render/pdf" {
		t.Fatalf("request path = %q, want /render/pdf", gotPath)
	}
	if gotBody != "<html>doc</html>" {
		t.Fatalf("request body = %q", gotBody)
	}
}

func TestProduceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewChromiumClient(Options{BaseURL: srv.URL})
	if _, err := c.Produce(context.Background(), "<html></html>"); err == nil {
		t.Fatal("Produce() error = nil, want error on 502")
	} else if !strings.Contains(err.Error(), "chromium crashed") {
		t.Fatalf("Produce() error = %v, want body included", err)
	}
}

func TestProduceRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer srv.Close()

	c, _ := NewChromiumClient(Options{BaseURL: srv.URL})
	if _, err := c.Produce(context.Background(), "<html></html>"); err == nil {
		t.Fatal("Produce() error = nil, want error on non-PDF body")
	}
}

func TestProduceEmptyContent(t *testing.T) {
	c, _ := NewChromiumClient(Options{BaseURL: "http://localhost:9222"})
	if _, err := c.Produce(context.Background(), "   "); err == nil {
		t.Fatal("Produce() error = nil, want error on empty content")
	}
}

func TestNewChromiumClientRequiresBaseURL(t *testing.T) {
	if _, err := NewChromiumClient(Options{}); err == nil {
		t.Fatal("NewChromiumClient() error = nil, want error without base url")
	}
}
