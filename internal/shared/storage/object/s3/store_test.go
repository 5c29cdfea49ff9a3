package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "co/drv/file.pdf", want: "co/drv/file.pdf"},
		{name: "simple prefix", prefix: "documents", key: "co/drv/file.pdf", want: "documents/co/drv/file.pdf"},
		{name: "prefix trailing slash", prefix: "documents/", key: "co/drv/file.pdf", want: "documents/co/drv/file.pdf"},
		{name: "prefix and key slashes", prefix: "/documents/", key: "/co/drv/file.pdf", want: "documents/co/drv/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func testStore() *Store {
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
	}
	return NewWithClient(s3.NewFromConfig(cfg), "bucket", "documents/")
}

func TestPresignPutSignsPrefixedKeyWithTTL(t *testing.T) {
	store := testStore()

	grant, err := store.PresignPut(context.Background(), "co-1/drv-1/abc-license.pdf", "application/pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}

	parsed, err := url.Parse(grant.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasSuffix(parsed.Path, "documents/co-1/drv-1/abc-license.pdf") {
		t.Fatalf("unexpected object path %q", parsed.Path)
	}
	if got := parsed.Query().Get("X-Amz-Expires"); got != "900" {
		t.Fatalf("expected X-Amz-Expires=900, got %q", got)
	}
	signed := parsed.Query().Get("X-Amz-SignedHeaders")
	if strings.Contains(signed, "content-length") {
		t.Fatalf("unexpected content-length in signed headers: %s", signed)
	}
	if time.Until(grant.ExpiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %s", grant.ExpiresAt)
	}
}
