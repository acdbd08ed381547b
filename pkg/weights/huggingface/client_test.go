package huggingface

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
)

func TestClientListFilesRecursive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/models/timm/resnet50.tv_in1k/tree/main":
			json.NewEncoder(w).Encode([]RepoFile{
				{Type: "file", Path: "README.md", Size: 100},
				{Type: "directory", Path: "onnx"},
			})
		case "/api/models/timm/resnet50.tv_in1k/tree/main/onnx":
			json.NewEncoder(w).Encode([]RepoFile{
				{Type: "file", Path: "onnx/model.onnx", Size: 200},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	files, err := client.ListFiles(t.Context(), "timm/resnet50.tv_in1k", "")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[1].Path != "onnx/model.onnx" {
		t.Errorf("Expected nested file, got %q", files[1].Path)
	}
}

func TestClientDownloadFile(t *testing.T) {
	expectedContent := "test file content"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/test-org/test-model/resolve/main/config.json" {
			if got := r.Header.Get("User-Agent"); got != "zoo-test" {
				t.Errorf("Expected User-Agent zoo-test, got %q", got)
			}
			w.Write([]byte(expectedContent))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL+"/"), WithUserAgent("zoo-test"))

	reader, size, err := client.DownloadFile(t.Context(), "test-org/test-model", "", "config.json")
	if err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}
	defer reader.Close()

	if size != int64(len(expectedContent)) {
		t.Errorf("Expected size %d, got %d", len(expectedContent), size)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(content) != expectedContent {
		t.Errorf("Expected content %q, got %q", expectedContent, string(content))
	}
}

func TestClientWithToken(t *testing.T) {
	var receivedToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedToken = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]RepoFile{})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithToken("hf_test"))
	if _, err := client.ListFiles(t.Context(), "test/model", "main"); err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if receivedToken != "Bearer hf_test" {
		t.Errorf("Expected 'Bearer hf_test', got %q", receivedToken)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, errdefs.IsUnauthorized, "access denied (status 401)"},
		{"forbidden", http.StatusForbidden, errdefs.IsPermissionDenied, "access denied (status 403)"},
		{"not found", http.StatusNotFound, errdefs.IsNotFound, "private/model: not found"},
		{"rate limited", http.StatusTooManyRequests, errdefs.IsResourceExhausted, "rate limited"},
		{"bad gateway", http.StatusBadGateway, errdefs.IsUnavailable, "unexpected status 502: upstream down"},
		{"teapot", http.StatusTeapot, errdefs.IsUnknown, "unexpected status 418"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.status == http.StatusBadGateway {
					w.Write([]byte("upstream down\n"))
				}
			}))
			defer server.Close()

			client := NewClient(WithBaseURL(server.URL))
			_, err := client.ListFiles(t.Context(), "private/model", "main")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			var hubErr *HubError
			if !errors.As(err, &hubErr) {
				t.Fatalf("Expected *HubError, got %T", err)
			}
			if hubErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, hubErr.StatusCode)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("Expected %q in %q", tt.msg, err.Error())
			}
			if !tt.check(err) {
				t.Errorf("Error %v does not map to the expected errdefs class", err)
			}
		})
	}
}

func TestClientDownloadMissingFile(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, _, err := client.DownloadFile(t.Context(), "timm/resnet50.tv_in1k", "main", "model.safetensors")
	if !errdefs.IsNotFound(err) {
		t.Fatalf("Expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "timm/resnet50.tv_in1k/model.safetensors") {
		t.Errorf("Expected the file in the error, got %q", err.Error())
	}
}

func TestFilterModelFiles(t *testing.T) {
	files := []RepoFile{
		{Type: "directory", Path: "onnx"},
		{Type: "file", Path: "model.safetensors", Size: 100, LFS: &LFSInfo{Size: 1000}},
		{Type: "file", Path: "pytorch_model.bin", Size: 1000},
		{Type: "file", Path: "config.json", Size: 10},
		{Type: "file", Path: "README.md", Size: 10},
	}

	weights, configs := FilterModelFiles(files)
	if len(weights) != 1 || weights[0].Path != "model.safetensors" {
		t.Errorf("Unexpected weight files: %+v", weights)
	}
	if len(configs) != 1 || configs[0].Path != "config.json" {
		t.Errorf("Unexpected config files: %+v", configs)
	}
	if got := TotalSize(weights); got != 1000 {
		t.Errorf("Expected LFS size 1000, got %d", got)
	}
}
