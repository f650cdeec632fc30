package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewObjectStore_Initializes(t *testing.T) {
	store, err := NewObjectStore(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		PublicURL: "http://localhost:9000/",
	})
	if err != nil {
		t.Fatalf("NewObjectStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
	if strings.HasSuffix(store.publicURL, "/") {
		t.Errorf("publicURL should be trimmed: %q", store.publicURL)
	}
}

func TestEnsureBuckets_UnreachableEndpointFails(t *testing.T) {
	store, err := NewObjectStore(Config{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		PublicURL: "http://127.0.0.1:1",
	})
	if err != nil {
		t.Fatalf("NewObjectStore() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.EnsureBuckets(ctx); err == nil {
		t.Error("expected error against unreachable storage")
	}
}

func TestAllowedImageTypes(t *testing.T) {
	tests := []struct {
		contentType string
		wantExt     string
		wantOK      bool
	}{
		{"image/jpeg", ".jpg", true},
		{"image/png", ".png", true},
		{"image/webp", ".webp", true},
		{"image/svg+xml", "", false}, // SVGはスクリプト混入の恐れがあるため拒否
		{"application/pdf", "", false},
		{"text/html", "", false},
	}

	for _, tt := range tests {
		ext, ok := allowedImageTypes[tt.contentType]
		if ok != tt.wantOK {
			t.Errorf("allowedImageTypes[%q] ok = %v, want %v", tt.contentType, ok, tt.wantOK)
		}
		if ext != tt.wantExt {
			t.Errorf("allowedImageTypes[%q] = %q, want %q", tt.contentType, ext, tt.wantExt)
		}
	}
}
