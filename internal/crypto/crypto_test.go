package crypto

import (
	"strings"
	"testing"
)

func TestNewEncryptor(t *testing.T) {
	if enc := NewEncryptor(""); enc != nil {
		t.Errorf("NewEncryptor(\"\") = %v, want nil", enc)
	}
	if enc := NewEncryptor("strong-passphrase-123"); enc == nil {
		t.Error("NewEncryptor() = nil, want non-nil")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	enc := NewEncryptor("test-passphrase")

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple text", "api-key-0123456789abcdef"},
		{"empty string", ""},
		{"special characters", "!@#$%^&*()_+-=[]{}|;:',.<>?"},
		{"long text", strings.Repeat("Lorem ipsum dolor sit amet. ", 100)},
		{"multiline", "line1\nline2\nline3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if tt.plaintext != "" && ciphertext == tt.plaintext {
				t.Error("Encrypt() did not change the plaintext")
			}

			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if decrypted != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptDecrypt_NilEncryptor(t *testing.T) {
	var enc *Encryptor

	plaintext := "hello world"
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() with nil encryptor error = %v", err)
	}
	if ciphertext != plaintext {
		t.Errorf("Encrypt() with nil encryptor = %q, want %q", ciphertext, plaintext)
	}

	decrypted, err := enc.Decrypt(plaintext)
	if err != nil {
		t.Fatalf("Decrypt() with nil encryptor error = %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("Decrypt() with nil encryptor = %q, want %q", decrypted, plaintext)
	}
}

func TestDecrypt_PlaintextPassthrough(t *testing.T) {
	enc := NewEncryptor("test-passphrase")

	tests := []struct {
		name  string
		input string
	}{
		{"unencrypted text", "plain api key that was never encrypted"},
		{"invalid base64", "not-valid-base64-but-should-not-crash!@#"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Decrypt(tt.input)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			_ = got
		})
	}
}

func TestDifferentEncryptors(t *testing.T) {
	enc1 := NewEncryptor("passphrase1")
	enc2 := NewEncryptor("passphrase2")

	plaintext := "secret data"
	ciphertext, err := enc1.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("enc1.Encrypt() error = %v", err)
	}

	decrypted, err := enc2.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("enc2.Decrypt() error = %v", err)
	}
	if decrypted == plaintext {
		t.Error("Different encryptor should not decrypt correctly")
	}
}

func TestEncryption_ConsistentKeyDerivation(t *testing.T) {
	passphrase := "test-passphrase-123"
	enc1 := NewEncryptor(passphrase)
	enc2 := NewEncryptor(passphrase)

	plaintext := "test data"
	ciphertext, err := enc1.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("enc1.Encrypt() error = %v", err)
	}

	decrypted, err := enc2.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("enc2.Decrypt() error = %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("Same passphrase should allow decryption: got %q, want %q", decrypted, plaintext)
	}
}

func TestEncryption_NonDeterministic(t *testing.T) {
	enc := NewEncryptor("test-passphrase")
	plaintext := "same text"

	ciphertext1, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("first Encrypt() error = %v", err)
	}
	ciphertext2, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("second Encrypt() error = %v", err)
	}
	if ciphertext1 == ciphertext2 {
		t.Error("Encryption should be non-deterministic (random nonce)")
	}

	dec1, _ := enc.Decrypt(ciphertext1)
	dec2, _ := enc.Decrypt(ciphertext2)
	if dec1 != plaintext || dec2 != plaintext {
		t.Error("Both ciphertexts should decrypt to same plaintext")
	}
}
