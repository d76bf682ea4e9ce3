// Package spk implements the device-container format accepted by the camera
// installer. A container wraps a plain application package (apk) in a small
// versioned header followed by an AES-GCM sealed payload. The payload key is
// derived with argon2id from the vendor seed and a per-container random salt,
// so every container is unique even for identical input packages.
//
// Dump and Parse are pure byte-to-byte transforms: Parse(Dump(x)) == x for
// any input package.
package spk

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/openpmca/webinstaller/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// MimeType is the content type of a device container.
	MimeType = "application/x-spk"
	// Extension is the canonical container file extension.
	Extension = ".spk"

	// ApkMimeType is the content type of an unwrapped application package.
	ApkMimeType = "application/vnd.android.package-archive"
	// ApkExtension is the plain package file extension.
	ApkExtension = ".apk"
)

// FormatVersion is the container version this codec produces and accepts.
const FormatVersion uint32 = 1

const (
	saltSize  = 16
	nonceSize = 12
)

var magic = []byte("1spk")

// headerSize is magic + version + salt + nonce.
const headerSize = 4 + 4 + saltSize + nonceSize

// vendorSeed is the shared secret the camera installer derives the payload
// key from. It is baked into firmware, so it is no more secret than the
// format itself.
var vendorSeed = []byte("PMCA-CONTENT-PROTECTION-00")

func deriveKey(salt []byte) []byte {
	return argon2.IDKey(vendorSeed, salt, 1, 64*1024, 4, 32)
}

// Dump wraps a plain application package into a device container.
func Dump(apk []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(salt))
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+len(apk)+aesgcm.Overhead())
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint32(out, FormatVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aesgcm.Seal(out, nonce, apk, out[:headerSize])

	return out, nil
}

// Parse unwraps a device container and returns the plain application
// package. Truncated, corrupted or unsupported input fails with
// common.ErrorFormat.
func Parse(spk []byte) ([]byte, error) {
	if len(spk) < headerSize {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", common.ErrorFormat, len(spk))
	}
	if !bytes.Equal(spk[:4], magic) {
		return nil, fmt.Errorf("%w: bad magic", common.ErrorFormat)
	}
	version := binary.LittleEndian.Uint32(spk[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", common.ErrorFormat, version)
	}

	salt := spk[8 : 8+saltSize]
	nonce := spk[8+saltSize : headerSize]

	block, err := aes.NewCipher(deriveKey(salt))
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	apk, err := aesgcm.Open(nil, nonce, spk[headerSize:], spk[:headerSize])
	if err != nil {
		return nil, fmt.Errorf("%w: payload authentication failed", common.ErrorFormat)
	}
	return apk, nil
}
