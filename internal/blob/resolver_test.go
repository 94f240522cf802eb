package blob

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMinioResolverPresignsLocally(t *testing.T) {
	r, err := NewMinioResolver(Options{
		Endpoint:         "127.0.0.1:9000",
		AccessKey:        "minio",
		SecretKey:        "minio-secret",
		Bucket:           "uploads",
		Region:           "us-east-1",
		PresignTTL:       15 * time.Minute,
		DefaultAvatarURL: "/static/default-avatar.png",
	})
	if err != nil {
		t.Fatalf("NewMinioResolver: %v", err)
	}

	ctx := context.Background()
	got, err := r.URL(ctx, "avatars/abc.png")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.HasPrefix(got, "http://127.0.0.1:9000/uploads/avatars/abc.png?") {
		t.Fatalf("unexpected presigned url %q", got)
	}
	if !strings.Contains(got, "X-Amz-Expires=900") {
		t.Fatalf("expected 15m expiry in %q", got)
	}
}

func TestResolversHandleEmptyAndDefault(t *testing.T) {
	minioResolver, err := NewMinioResolver(Options{
		Endpoint:         "127.0.0.1:9000",
		Bucket:           "uploads",
		Region:           "us-east-1",
		DefaultAvatarURL: "/default.png",
	})
	if err != nil {
		t.Fatalf("NewMinioResolver: %v", err)
	}
	resolvers := map[string]Resolver{
		"minio":  minioResolver,
		"static": StaticResolver{BaseURL: "http://cdn.local/", DefaultAvatarURL: "/default.png"},
	}

	for name, r := range resolvers {
		t.Run(name, func(t *testing.T) {
			got, err := r.URL(context.Background(), "")
			if err != nil || got != "" {
				t.Fatalf("empty id: got %q err %v", got, err)
			}
			got, err = r.URL(context.Background(), DefaultAvatarID)
			if err != nil || got != "/default.png" {
				t.Fatalf("default avatar: got %q err %v", got, err)
			}
		})
	}
}

func TestStaticResolverJoinsBase(t *testing.T) {
	r := StaticResolver{BaseURL: "http://cdn.local/"}
	got, err := r.URL(context.Background(), "img 1.png")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if got != "http://cdn.local/img%201.png" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestNewMinioResolverRequiresEndpoint(t *testing.T) {
	if _, err := NewMinioResolver(Options{Bucket: "uploads"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
