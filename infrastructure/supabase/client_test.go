package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "service-key", "media", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient unexpected error: %v", err)
	}
	return client, srv
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", "key", "media"); err == nil {
		t.Error("expected error for missing project URL")
	}
	if _, err := NewClient("https://x.supabase.co", "", "media"); err == nil {
		t.Error("expected error for missing service key")
	}
	if _, err := NewClient("https://x.supabase.co", "key", ""); err == nil {
		t.Error("expected error for missing bucket")
	}
}

func TestClient_SignURL(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]int

	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{
			"signedURL": "/object/sign/media/uploads/p1/video.mp4?token=abc",
		})
	})

	url, err := client.SignURL(context.Background(), "uploads/p1/video.mp4", 10*time.Minute)
	if err != nil {
		t.Fatalf("SignURL unexpected error: %v", err)
	}

	if gotPath != "/storage/v1/object/sign/media/uploads/p1/video.mp4" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody["expiresIn"] != 600 {
		t.Errorf("expiresIn = %d, want 600", gotBody["expiresIn"])
	}

	want := srv.URL + "/storage/v1/object/sign/media/uploads/p1/video.mp4?token=abc"
	if url != want {
		t.Errorf("signed url = %q, want %q", url, want)
	}
}

func TestClient_SignURL_EmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := client.SignURL(context.Background(), "uploads/p1/video.mp4", time.Minute)
	if err == nil || !strings.Contains(err.Error(), "no URL") {
		t.Errorf("error = %v, want empty-URL failure", err)
	}
}

func TestClient_Download(t *testing.T) {
	var gotPath, gotMethod string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Write([]byte("object bytes"))
	})

	data, err := client.Download(context.Background(), "projects/p1/audio_chunks/chunk_0.mp3")
	if err != nil {
		t.Fatalf("Download unexpected error: %v", err)
	}

	if gotMethod != http.MethodGet {
		t.Errorf("method = %s, want GET", gotMethod)
	}
	if gotPath != "/storage/v1/object/media/projects/p1/audio_chunks/chunk_0.mp3" {
		t.Errorf("request path = %q", gotPath)
	}
	if !bytes.Equal(data, []byte("object bytes")) {
		t.Errorf("data = %q", data)
	}
}

func TestClient_DownloadNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "message": "Object not found"})
	})

	_, err := client.Download(context.Background(), "projects/p1/missing.mp3")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want 404 failure", err)
	}
	if !strings.Contains(err.Error(), "Object not found") {
		t.Errorf("error = %v, want the API message included", err)
	}
}

func TestClient_Upload(t *testing.T) {
	var gotPath, gotMethod, gotContentType, gotUpsert, gotCacheControl string
	var gotBody []byte

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotCacheControl = r.Header.Get("cache-control")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{"Key": "media/projects/p1/audio_chunks/chunk_0.mp3"})
	})

	err := client.Upload(context.Background(), "projects/p1/audio_chunks/chunk_0.mp3", []byte("mp3 bytes"), storage.UploadOptions{
		ContentType:  "audio/mpeg",
		CacheControl: "3600",
		Upsert:       true,
	})
	if err != nil {
		t.Fatalf("Upload unexpected error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/storage/v1/object/media/projects/p1/audio_chunks/chunk_0.mp3" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotContentType != "audio/mpeg" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if gotUpsert != "true" {
		t.Errorf("x-upsert = %q, want true", gotUpsert)
	}
	if gotCacheControl != "max-age=3600" {
		t.Errorf("cache-control = %q, want max-age=3600", gotCacheControl)
	}
	if !bytes.Equal(gotBody, []byte("mp3 bytes")) {
		t.Error("upload body does not match")
	}
}

func TestClient_UploadDefaults(t *testing.T) {
	var gotContentType, gotUpsert, gotCacheControl string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotCacheControl = r.Header.Get("cache-control")
	})

	if err := client.Upload(context.Background(), "p", []byte("x"), storage.UploadOptions{}); err != nil {
		t.Fatalf("Upload unexpected error: %v", err)
	}

	if gotContentType != "application/octet-stream" {
		t.Errorf("content-type = %q, want octet-stream default", gotContentType)
	}
	if gotUpsert != "false" {
		t.Errorf("x-upsert = %q, want false", gotUpsert)
	}
	if gotCacheControl != "" {
		t.Errorf("cache-control = %q, want unset", gotCacheControl)
	}
}

func TestClient_UploadConflict(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Duplicate", "message": "The resource already exists"})
	})

	err := client.Upload(context.Background(), "p", []byte("x"), storage.UploadOptions{})
	if err == nil || !strings.Contains(err.Error(), "409") {
		t.Errorf("error = %v, want 409 failure", err)
	}
}

func TestClient_List(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[
			{"name": "chunk_0.mp3", "updated_at": "2026-03-01T10:00:00Z", "metadata": {"size": 960000}},
			{"name": "chunk_1.mp3", "updated_at": "2026-03-01T10:00:05Z", "metadata": {"size": 960512}}
		]`))
	})

	objects, err := client.List(context.Background(), "projects/p1/audio_chunks")
	if err != nil {
		t.Fatalf("List unexpected error: %v", err)
	}

	if gotPath != "/storage/v1/object/list/media" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody["prefix"] != "projects/p1/audio_chunks" {
		t.Errorf("prefix = %v", gotBody["prefix"])
	}

	if len(objects) != 2 {
		t.Fatalf("listed %d objects, want 2", len(objects))
	}
	if objects[0].Name != "chunk_0.mp3" || objects[0].Size != 960000 {
		t.Errorf("object 0 = %+v", objects[0])
	}
	if objects[1].UpdatedAt.IsZero() {
		t.Error("object 1 missing updated_at")
	}
}
