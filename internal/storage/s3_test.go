package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/webstorehq/storeadmin/config"
)

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := NewGateway(context.Background(), config.StorageConfig{
		Endpoint:      "http://127.0.0.1:9000",
		Region:        "auto",
		Bucket:        "test-bucket",
		AccessKey:     "test-access",
		SecretKey:     "test-secret",
		PublicBaseURL: "https://cdn.example/",
		PathStyle:     true,
		UploadTTL:     360,
		ReadTTL:       900,
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func TestNewObjectKey(t *testing.T) {
	g := testGateway(t)

	k1 := g.NewObjectKey("photo.png")
	k2 := g.NewObjectKey("photo.png")
	if k1 == k2 {
		t.Errorf("keys for identical file names collide: %q", k1)
	}
	if !strings.HasSuffix(k1, "-photo.png") {
		t.Errorf("key %q does not end with the sanitized file name", k1)
	}

	k := g.NewObjectKey("../../etc/passwd")
	if strings.Contains(k, "/") || strings.Contains(k, "..") {
		t.Errorf("path components survived sanitization: %q", k)
	}
	k = g.NewObjectKey("my photo (1).png")
	if strings.ContainsAny(k, " ()") {
		t.Errorf("unsafe characters survived sanitization: %q", k)
	}
}

func TestPublicURL(t *testing.T) {
	g := testGateway(t)
	if got := g.PublicURL("abc-photo.png"); got != "https://cdn.example/abc-photo.png" {
		t.Errorf("public url = %q", got)
	}
}

func TestRequestUploadSlot(t *testing.T) {
	g := testGateway(t)

	slot, err := g.RequestUploadSlot(context.Background(), "photo.png", "image/png", 2048)
	if err != nil {
		t.Fatalf("request upload slot: %v", err)
	}
	if slot.Key == "" || slot.Key == "photo.png" {
		t.Errorf("key must be server-generated, got %q", slot.Key)
	}
	if slot.URL != "https://cdn.example/"+slot.Key {
		t.Errorf("public url = %q for key %q", slot.URL, slot.Key)
	}

	u, err := url.Parse(slot.PresignedURL)
	if err != nil {
		t.Fatalf("parse presigned url: %v", err)
	}
	if !strings.Contains(u.Path, slot.Key) {
		t.Errorf("presigned path %q missing key %q", u.Path, slot.Key)
	}
	q := u.Query()
	if q.Get("X-Amz-Signature") == "" {
		t.Errorf("presigned url is unsigned: %q", slot.PresignedURL)
	}
	if q.Get("X-Amz-Expires") != "360" {
		t.Errorf("expiry = %q, want 360", q.Get("X-Amz-Expires"))
	}

	other, err := g.RequestUploadSlot(context.Background(), "photo.png", "image/png", 2048)
	if err != nil {
		t.Fatalf("second upload slot: %v", err)
	}
	if other.Key == slot.Key {
		t.Errorf("two slots share key %q", slot.Key)
	}
}

func TestRequestRetrievalURL(t *testing.T) {
	g := testGateway(t)

	raw, err := g.RequestRetrievalURL(context.Background(), "abc-photo.png")
	if err != nil {
		t.Fatalf("request retrieval url: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse retrieval url: %v", err)
	}
	if !strings.Contains(u.Path, "abc-photo.png") {
		t.Errorf("retrieval path %q missing key", u.Path)
	}
	if u.Query().Get("X-Amz-Expires") != "900" {
		t.Errorf("expiry = %q, want 900", u.Query().Get("X-Amz-Expires"))
	}
}
