package crypto

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := DeriveKey([]byte("test secret"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	return key
}

func TestDeriveKeyDeterministic(t *testing.T) {
	key1, err := DeriveKey([]byte("some secret"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	key2, err := DeriveKey([]byte("some secret"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}

	if len(key1) != KeySize {
		t.Errorf("key length = %d, want %d", len(key1), KeySize)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("same secret produced different keys")
	}

	other, err := DeriveKey([]byte("other secret"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if bytes.Equal(key1, other) {
		t.Error("different secrets produced the same key")
	}
}

func TestDeriveKeyEmptySecret(t *testing.T) {
	if _, err := DeriveKey(nil); err == nil {
		t.Error("DeriveKey(nil) should fail")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	plaintexts := []string{
		"hi",
		"hello there",
		"",
		"unicode: héllo wörld 你好 🙂",
		strings.Repeat("long message ", 50),
	}

	for _, plaintext := range plaintexts {
		ciphertext, err := EncryptString(key, plaintext)
		if err != nil {
			t.Fatalf("EncryptString(%q) error = %v", plaintext, err)
		}
		if ciphertext == plaintext && plaintext != "" {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}

		got, err := DecryptString(key, ciphertext)
		if err != nil {
			t.Fatalf("DecryptString() error = %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	key := testKey(t)

	c1, err := EncryptString(key, "same message")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	c2, err := EncryptString(key, "same message")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if c1 == c2 {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key := testKey(t)

	ciphertext, err := EncryptString(key, "authentic message")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := DecryptString(key, tampered); err == nil {
		t.Error("DecryptString() on tampered ciphertext should fail")
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	key := testKey(t)

	for _, bad := range []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
		"",
	} {
		if _, err := DecryptString(key, bad); err == nil {
			t.Errorf("DecryptString(%q) should fail", bad)
		}
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key := testKey(t)
	wrongKey, err := DeriveKey([]byte("a different secret"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}

	ciphertext, err := EncryptString(key, "for the right key only")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if _, err := DecryptString(wrongKey, ciphertext); err == nil {
		t.Error("DecryptString() with wrong key should fail")
	}
}

func TestBadKeyLength(t *testing.T) {
	if _, err := EncryptString([]byte("too short"), "msg"); err == nil {
		t.Error("EncryptString() with short key should fail")
	}
	if _, err := DecryptString([]byte("too short"), "msg"); err == nil {
		t.Error("DecryptString() with short key should fail")
	}
}

func TestStaticKeySourceSameKeyForAllPeers(t *testing.T) {
	src, err := NewStaticKeySource([]byte("shared"))
	if err != nil {
		t.Fatalf("NewStaticKeySource() error = %v", err)
	}

	k1, err := src.Key("device-a")
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	k2, err := src.Key("device-b")
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("static source should serve the same key for every peer")
	}
	if len(k1) != KeySize {
		t.Errorf("key length = %d, want %d", len(k1), KeySize)
	}
}
