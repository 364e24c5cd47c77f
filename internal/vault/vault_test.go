package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ecotermo/internal/eco"
)

// vaultFactories builds every backend for the shared behavior tests.
func vaultFactories(t *testing.T) map[string]func() eco.Vault {
	t.Helper()
	return map[string]func() eco.Vault{
		"memory": func() eco.Vault { return NewMemoryVault("test") },
		"filesystem": func() eco.Vault {
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}
			return v
		},
		"s3": func() eco.Vault { return NewS3Vault("test", "bucket", "ecotermo", newFakeS3()) },
	}
}

func TestVault_PutAndGetContent(t *testing.T) {
	tests := []struct {
		name     string
		checksum string
		content  string
	}{
		{name: "snapshot payload", checksum: "abc123", content: "compressed bytes"},
		{name: "empty content", checksum: "empty", content: ""},
		{name: "large content", checksum: "large", content: strings.Repeat("x", 10000)},
	}

	for backend, newVault := range vaultFactories(t) {
		v := newVault()
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				if err := v.PutContent(tt.checksum, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
					t.Fatalf("PutContent() error = %v", err)
				}

				var buf bytes.Buffer
				if err := v.GetContent(tt.checksum, &buf); err != nil {
					t.Fatalf("GetContent() error = %v", err)
				}
				if got := buf.String(); got != tt.content {
					t.Errorf("GetContent() = %q, want %q", got, tt.content)
				}
			})
		}
	}
}

func TestVault_PutContentIdempotent(t *testing.T) {
	for backend, newVault := range vaultFactories(t) {
		t.Run(backend, func(t *testing.T) {
			v := newVault()
			for i := 0; i < 2; i++ {
				if err := v.PutContent("same", strings.NewReader("payload"), 7); err != nil {
					t.Fatalf("PutContent() iteration %d error = %v", i+1, err)
				}
			}

			var buf bytes.Buffer
			if err := v.GetContent("same", &buf); err != nil {
				t.Fatalf("GetContent() error = %v", err)
			}
			if buf.String() != "payload" {
				t.Errorf("GetContent() = %q, want %q", buf.String(), "payload")
			}
		})
	}
}

func TestVault_PutContentSizeMismatch(t *testing.T) {
	for backend, newVault := range vaultFactories(t) {
		t.Run(backend, func(t *testing.T) {
			v := newVault()
			if err := v.PutContent("short", strings.NewReader("abc"), 10); err == nil {
				t.Error("PutContent() expected error for size mismatch")
			}
			if err := v.GetContent("short", &bytes.Buffer{}); err == nil {
				t.Error("GetContent() expected error after failed put")
			}
		})
	}
}

func TestVault_GetContentNotFound(t *testing.T) {
	for backend, newVault := range vaultFactories(t) {
		t.Run(backend, func(t *testing.T) {
			err := newVault().GetContent("missing", &bytes.Buffer{})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("GetContent() error = %v, want ErrNotFound", err)
			}
			if !errors.Is(err, eco.ErrPayloadNotFound) {
				t.Errorf("GetContent() error = %v, want eco.ErrPayloadNotFound", err)
			}
			var nf *NotFoundError
			if !errors.As(err, &nf) || nf.Kind != "content" || nf.Key != "missing" {
				t.Errorf("GetContent() error = %#v, want content NotFoundError for %q", err, "missing")
			}
		})
	}
}

func TestVault_Metadata(t *testing.T) {
	for backend, newVault := range vaultFactories(t) {
		t.Run(backend, func(t *testing.T) {
			v := newVault()

			version, err := v.GetMetadataVersion("plant-a", "db")
			if err != nil {
				t.Fatalf("GetMetadataVersion() error = %v", err)
			}
			if version != 0 {
				t.Errorf("GetMetadataVersion() before put = %d, want 0", version)
			}

			if err := v.PutMetadata("plant-a", "db", strings.NewReader("v1"), 2, 3); err != nil {
				t.Fatalf("PutMetadata() error = %v", err)
			}
			if err := v.PutMetadata("plant-a", "db", strings.NewReader("v2!"), 3, 7); err != nil {
				t.Fatalf("PutMetadata() overwrite error = %v", err)
			}

			var buf bytes.Buffer
			if err := v.GetMetadata("plant-a", "db", &buf); err != nil {
				t.Fatalf("GetMetadata() error = %v", err)
			}
			if buf.String() != "v2!" {
				t.Errorf("GetMetadata() = %q, want %q", buf.String(), "v2!")
			}

			version, err = v.GetMetadataVersion("plant-a", "db")
			if err != nil {
				t.Fatalf("GetMetadataVersion() error = %v", err)
			}
			if version != 7 {
				t.Errorf("GetMetadataVersion() = %d, want 7", version)
			}

			// Other actors and names are independent.
			if err := v.GetMetadata("plant-b", "db", &bytes.Buffer{}); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetMetadata() other actor error = %v, want ErrNotFound", err)
			}
			err = v.GetMetadata("plant-a", "public_key", &bytes.Buffer{})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("GetMetadata() other name error = %v, want ErrNotFound", err)
			}
			if errors.Is(err, eco.ErrPayloadNotFound) {
				t.Errorf("GetMetadata() error = %v matches eco.ErrPayloadNotFound", err)
			}
		})
	}
}

func TestVault_ValidateSetup(t *testing.T) {
	for backend, newVault := range vaultFactories(t) {
		t.Run(backend, func(t *testing.T) {
			if err := newVault().ValidateSetup(); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestMemoryVault_RejectsPathNames(t *testing.T) {
	v := NewMemoryVault("test")
	if err := v.PutContent("../escape", strings.NewReader("x"), 1); err == nil {
		t.Error("PutContent() with a path checksum succeeded, want error")
	}
	if err := v.PutMetadata("plant/a", "db", strings.NewReader("x"), 1, 1); err == nil {
		t.Error("PutMetadata() with a path actor succeeded, want error")
	}
	if err := v.PutMetadata("plant-a", "", strings.NewReader("x"), 1, 1); err == nil {
		t.Error("PutMetadata() with an empty name succeeded, want error")
	}
}
