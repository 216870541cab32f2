package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorageUpload(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.png")
	if err := os.WriteFile(src, []byte("png-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	root := filepath.Join(tmpDir, "pins")
	s := NewLocalStorage(root, "http://localhost:8080/pins/")

	tests := []struct {
		name       string
		objectName string
		wantURL    string
		wantErr    bool
	}{
		{
			name:       "nestedObject",
			objectName: "pinterest_pins/run-1/pin_image_1.png",
			wantURL:    "http://localhost:8080/pins/pinterest_pins/run-1/pin_image_1.png",
		},
		{name: "escapesRoot", objectName: "../outside.png", wantErr: true},
		{name: "absolute", objectName: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := s.Upload(context.Background(), src, tt.objectName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Upload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if url != tt.wantURL {
				t.Errorf("Upload() = %q, want %q", url, tt.wantURL)
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(tt.objectName)))
			if err != nil {
				t.Fatalf("uploaded file missing: %v", err)
			}
			if string(data) != "png-bytes" {
				t.Errorf("uploaded content = %q", data)
			}
		})
	}
}

func TestLocalStorageUploadMissingSource(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "http://localhost/pins")
	if _, err := s.Upload(context.Background(), "/nonexistent/file.png", "a/b.png"); err == nil {
		t.Error("Upload() should fail for a missing source file")
	}
}

func TestLocalStorageUploadCancelled(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "http://localhost/pins")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Upload(ctx, "irrelevant", "a.png"); err == nil {
		t.Error("Upload() should fail with a cancelled context")
	}
}

func TestLocalStorageList(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "http://localhost/pins")
	src := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"pins/run2/pin_image_0.png", "pins/run1/pin_image_1.png", "pins/run1/pin_image_0.png"} {
		if _, err := s.Upload(context.Background(), src, name); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{prefix: "pins/run1/", want: []string{"pins/run1/pin_image_0.png", "pins/run1/pin_image_1.png"}},
		{prefix: "pins/", want: []string{"pins/run1/pin_image_0.png", "pins/run1/pin_image_1.png", "pins/run2/pin_image_0.png"}},
		{prefix: "other/", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := s.List(context.Background(), tt.prefix)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLocalStorageListMissingRoot(t *testing.T) {
	s := NewLocalStorage(filepath.Join(t.TempDir(), "absent"), "http://localhost/pins")
	got, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		object string
		want   string
	}{
		{
			name:   "plain",
			bucket: "my-bucket",
			object: "pinterest_pins/run/pin_image_1.png",
			want:   "https://storage.googleapis.com/my-bucket/pinterest_pins/run/pin_image_1.png",
		},
		{
			name:   "escapedSpace",
			bucket: "b",
			object: "pins/a b.png",
			want:   "https://storage.googleapis.com/b/pins/a%20b.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicURL(tt.bucket, tt.object); got != tt.want {
				t.Errorf("PublicURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("a/b/pin.png"); got != "image/png" {
		t.Errorf("contentType(png) = %q", got)
	}
	if got := contentType("noext"); got != "application/octet-stream" {
		t.Errorf("contentType(noext) = %q", got)
	}
}

func encodedImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestScratchSaveImage(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		wantErr bool
	}{
		{
			name: "png",
			data: func(t *testing.T) []byte {
				return encodedImage(t, func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) })
			},
		},
		{
			name: "jpegNormalizedToPNG",
			data: func(t *testing.T) []byte {
				return encodedImage(t, func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) })
			},
		},
		{
			name:    "notAnImage",
			data:    func(*testing.T) []byte { return []byte("<html>oops</html>") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scratch, err := NewScratch(t.TempDir(), "run-1")
			if err != nil {
				t.Fatalf("NewScratch() error = %v", err)
			}

			path, err := scratch.SaveImage("pin_image_1.png", tt.data(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("SaveImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("saved file missing: %v", err)
			}
			defer f.Close()

			cfg, format, err := image.DecodeConfig(f)
			if err != nil {
				t.Fatalf("DecodeConfig() error = %v", err)
			}
			if format != "png" {
				t.Errorf("format = %q, want png", format)
			}
			if cfg.Width != 4 || cfg.Height != 3 {
				t.Errorf("size = %dx%d, want 4x3", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestScratchRemoveAndCleanup(t *testing.T) {
	base := t.TempDir()
	scratch, err := NewScratch(base, "run-2")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(scratch.Dir(), "pin_image_1.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := scratch.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(scratch.Dir()); err != nil {
		t.Error("Cleanup() removed a directory that still holds files")
	}

	if err := scratch.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := scratch.Remove(path); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}

	if err := scratch.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(scratch.Dir()); !os.IsNotExist(err) {
		t.Error("Cleanup() left an empty run directory")
	}
}
