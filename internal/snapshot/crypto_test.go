package snapshot

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"version":1,"products":[]}`)

	sealed, err := Encrypt(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("products")) {
		t.Error("ciphertext leaks plaintext")
	}

	opened, err := Decrypt(sealed, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip mismatch: %q", opened)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt(sealed, "wrong"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("error = %v, want ErrDecryptFailed", err)
	}
}

func TestDecryptTruncatedData(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "any"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("error = %v, want ErrDecryptFailed", err)
	}
}

func TestEncryptedFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.enc")
	doc := Build(testProducts(), nil, nil, nil)

	if err := WriteEncryptedFile(path, doc, "pass"); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadEncryptedFile(path, "pass")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got.Products, doc.Products) {
		t.Error("products differ after encrypted round trip")
	}

	if _, err := ReadEncryptedFile(path, "nope"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("error = %v, want ErrDecryptFailed", err)
	}
}
