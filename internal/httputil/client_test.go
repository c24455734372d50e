package httputil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewSecureClientDefaults(t *testing.T) {
	client := NewSecureClient(ClientOptions{})

	if client.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", client.Timeout)
	}
	ua, ok := client.Transport.(*userAgentTransport)
	if !ok {
		t.Fatalf("unexpected transport %T", client.Transport)
	}
	if !strings.HasPrefix(ua.agent, "chaos/") {
		t.Errorf("agent = %q", ua.agent)
	}
	if !ua.base.(*http.Transport).DisableCompression {
		t.Error("expected compression to be disabled")
	}
}

func TestUserAgentHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewSecureClient(ClientOptions{UserAgent: "chaos-test/1"})
	resp, err := Get(context.Background(), client, server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if got != "chaos-test/1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestGetStatusAndEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write([]byte("x"))
		default:
			if r.Header.Get("Accept-Encoding") != "identity" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}
	}))
	defer server.Close()
	client := server.Client()

	resp, err := Get(context.Background(), client, server.URL+"/files/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	_, err = Get(context.Background(), client, server.URL+"/missing")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 StatusError, got %v", err)
	}

	if _, err := Get(context.Background(), client, server.URL+"/gzip"); err == nil || !strings.Contains(err.Error(), "content encoding") {
		t.Errorf("expected encoding error, got %v", err)
	}
}

func TestGetCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Get(ctx, server.Client(), server.URL); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRedirectChecker(t *testing.T) {
	lookup := func(host string) ([]net.IP, error) {
		switch host {
		case "cmake.org":
			return []net.IP{net.ParseIP("66.194.253.20")}, nil
		case "rebind.example":
			return []net.IP{net.ParseIP("93.184.216.34"), net.ParseIP("10.0.0.5")}, nil
		}
		return nil, errors.New("no such host")
	}
	check := redirectChecker(3, lookup)

	tests := []struct {
		name    string
		url     string
		via     int
		wantErr string
	}{
		{"public https", "https://cmake.org/files/v3.28/", 0, ""},
		{"downgrade", "http://cmake.org/files/", 0, "non-HTTPS"},
		{"too deep", "https://cmake.org/files/", 3, "stopped after 3 redirects"},
		{"private literal", "https://192.168.1.1/admin", 0, "private"},
		{"loopback literal", "https://127.0.0.1/", 0, "loopback"},
		{"rebinding", "https://rebind.example/", 0, "private"},
		{"unresolvable", "https://nowhere.invalid/", 0, "failed to resolve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			err := check(req, make([]*http.Request, tt.via))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"10.0.0.1", "private"},
		{"172.16.0.1", "private"},
		{"192.168.255.255", "private"},
		{"fc00::1", "private"},
		{"127.0.0.1", "loopback"},
		{"::1", "loopback"},
		{"169.254.169.254", "link-local"},
		{"fe80::1", "link-local"},
		{"224.0.0.1", "link-local multicast"},
		{"239.1.1.1", "multicast"},
		{"0.0.0.0", "unspecified"},
		{"8.8.8.8", ""},
		{"2606:4700:4700::1111", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := ValidateIP(net.ParseIP(tt.ip), tt.ip)
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want+" address") {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}
