package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/openpmca/webinstaller/internal/common"
)

func TestGenerateAndVerify_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	handle := "pkg-123"

	tok, err := GenerateToken(handle, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	got, err := GetHandleFromToken(tok, secret)
	if err != nil {
		t.Fatalf("GetHandleFromToken error: %v", err)
	}
	if got != handle {
		t.Fatalf("handle mismatch: got %q want %q", got, handle)
	}
}

func TestGetHandleFromToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("pkg-1", []byte("secret"), -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetHandleFromToken(tok, []byte("secret"))
	if !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error for expired token, got %v", err)
	}
}

func TestGetHandleFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("pkg-2", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetHandleFromToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error for wrong secret, got %v", err)
	}
}

func TestGetHandleFromToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := GetHandleFromToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error for malformed token, got %v", err)
	}
}
