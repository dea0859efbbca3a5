package worker

import (
	"strings"
	"testing"
)

func TestSignFormat(t *testing.T) {
	sig := Sign("secret", []byte(`{"a":1}`))
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature %q missing sha256= prefix", sig)
	}
	if len(sig) != len("sha256=")+64 {
		t.Fatalf("signature %q has unexpected length", sig)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"eventId":"e1","type":"user.created"}`)
	sig := Sign("topsecret", body)

	if !VerifySignature("topsecret", body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature("wrong", body, sig) {
		t.Fatal("signature verified under wrong secret")
	}
	if VerifySignature("topsecret", []byte(`{"tampered":true}`), sig) {
		t.Fatal("signature verified over tampered body")
	}
}

func TestSignDeterministic(t *testing.T) {
	body := []byte("payload")
	if Sign("s", body) != Sign("s", body) {
		t.Fatal("signing is not deterministic")
	}
	if Sign("s1", body) == Sign("s2", body) {
		t.Fatal("different secrets produced the same signature")
	}
}
