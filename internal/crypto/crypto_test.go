package crypto

import (
	"errors"
	"testing"

	"github.com/nvoronin/card-ledger/internal/models"
)

const testKey = "0123456789abcdef"

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor(testKey)
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	return enc
}

func TestNewEncryptorRejectsBadKeyLength(t *testing.T) {
	for _, key := range []string{"", "short", "0123456789abcdef0"} {
		if _, err := NewEncryptor(key); !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("key %q: want ErrConfiguration, got %v", key, err)
		}
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)
	for _, plaintext := range []string{
		"4111111111111234",
		"4111 1111 1111 1234",
		"x", // shorter than one block
		"exactly-16-bytes", // one full block, forces a padding-only block
	} {
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if ciphertext == plaintext {
			t.Fatalf("ciphertext equals plaintext for %q", plaintext)
		}
		decrypted, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if decrypted != plaintext {
			t.Fatalf("round trip: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptIsDeterministic(t *testing.T) {
	enc := newTestEncryptor(t)
	first, err := enc.Encrypt("4111111111111234")
	if err != nil {
		t.Fatal(err)
	}
	second, err := enc.Encrypt("4111111111111234")
	if err != nil {
		t.Fatal(err)
	}
	// The uniqueness constraint on stored numbers depends on this.
	if first != second {
		t.Fatalf("same plaintext produced different ciphertexts: %q vs %q", first, second)
	}
	other, err := enc.Encrypt("4111111111119999")
	if err != nil {
		t.Fatal(err)
	}
	if other == first {
		t.Fatal("different plaintexts produced the same ciphertext")
	}
}

func TestEncryptEmptyInput(t *testing.T) {
	enc := newTestEncryptor(t)
	if _, err := enc.Encrypt(""); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if _, err := enc.Decrypt(""); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestDecryptCorruptCiphertext(t *testing.T) {
	enc := newTestEncryptor(t)
	for _, ciphertext := range []string{
		"not base64 at all!!!",
		"YWJj", // 3 bytes, not block aligned
	} {
		if _, err := enc.Decrypt(ciphertext); !errors.Is(err, models.ErrCrypto) {
			t.Fatalf("Decrypt(%q): want ErrCrypto, got %v", ciphertext, err)
		}
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	enc := newTestEncryptor(t)
	ciphertext, err := enc.Encrypt("4111111111111234")
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewEncryptor("fedcba9876543210")
	if err != nil {
		t.Fatal(err)
	}
	decrypted, err := other.Decrypt(ciphertext)
	// Wrong key yields either a padding error or garbage, never the plaintext.
	if err == nil && decrypted == "4111111111111234" {
		t.Fatal("decryption with wrong key recovered the plaintext")
	}
}
