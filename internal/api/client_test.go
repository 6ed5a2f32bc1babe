package api

import (
	"context"
	"testing"
	"time"

	"github.com/diogo/docchat/internal/models"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		opts        []ClientOption
		wantErr     bool
		wantBaseURL string
		wantTimeout time.Duration
	}{
		{
			name:        "defaults",
			opts:        []ClientOption{WithHTTPClient(&MockHttpClient{})},
			wantBaseURL: models.DefaultServerURL,
			wantTimeout: defaultTimeout,
		},
		{
			name: "custom base URL with trailing slash",
			opts: []ClientOption{
				WithHTTPClient(&MockHttpClient{}),
				WithBaseURL("https://docs.example.com/"),
			},
			wantBaseURL: "https://docs.example.com",
			wantTimeout: defaultTimeout,
		},
		{
			name: "custom timeout",
			opts: []ClientOption{
				WithHTTPClient(&MockHttpClient{}),
				WithTimeout(30 * time.Second),
			},
			wantBaseURL: models.DefaultServerURL,
			wantTimeout: 30 * time.Second,
		},
		{
			name: "zero timeout keeps default",
			opts: []ClientOption{
				WithHTTPClient(&MockHttpClient{}),
				WithTimeout(0),
			},
			wantBaseURL: models.DefaultServerURL,
			wantTimeout: defaultTimeout,
		},
		{
			name:    "empty base URL",
			opts:    []ClientOption{WithBaseURL("")},
			wantErr: true,
		},
		{
			name:    "missing scheme",
			opts:    []ClientOption{WithBaseURL("localhost:8000")},
			wantErr: true,
		},
		{
			name:        "real HTTP client",
			opts:        []ClientOption{WithProxy(""), WithInsecureSkipVerify(true)},
			wantBaseURL: models.DefaultServerURL,
			wantTimeout: defaultTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.opts...)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.BaseURL() != tt.wantBaseURL {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.wantBaseURL)
			}
			if client.timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", client.timeout, tt.wantTimeout)
			}
			if client.httpClient == nil {
				t.Error("httpClient is nil")
			}
		})
	}
}

func TestClientClose(t *testing.T) {
	mock := &MockHttpClient{}
	client, err := NewClient(WithHTTPClient(mock))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.IsClosed() {
		t.Fatal("new client should not be closed")
	}

	client.Close()
	client.Close()

	if !client.IsClosed() {
		t.Error("client should be closed")
	}
	if !mock.IdleClose {
		t.Error("Close should release idle connections")
	}

	if _, err := client.Health(context.Background()); err == nil {
		t.Error("requests on a closed client should fail")
	}
	if len(mock.Requests) != 0 {
		t.Errorf("closed client sent %d requests", len(mock.Requests))
	}
}
