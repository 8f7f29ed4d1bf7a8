// Package crypto implements the primitives the Web Push pipeline needs:
// base64url, ECDH P-256, HKDF-SHA256, AES-128-GCM, and ECDSA-P-256 ES256
// signing in the raw R||S form used by VAPID.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// EncodeBase64URL encodes data as unpadded, URL-safe base64.
func EncodeBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeBase64URL decodes an unpadded URL-safe base64 string. Input that
// carries "=" padding is rejected.
func DecodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// GenerateECDHKeyPair produces an ephemeral P-256 keypair: the public key
// in uncompressed SEC1 form (65 bytes, 0x04||X||Y) and the private key as
// a 32-byte scalar.
func GenerateECDHKeyPair() (public, private []byte, err error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate ecdh keypair: %w", err)
	}
	return priv.PublicKey().Bytes(), priv.Bytes(), nil
}

// ECDHShared computes the P-256 shared secret from a 32-byte private
// scalar and a 65-byte uncompressed peer public key.
func ECDHShared(private, peerPublic []byte) ([]byte, error) {
	if len(private) != 32 {
		return nil, fmt.Errorf("crypto: ecdh private key must be 32 bytes, got %d", len(private))
	}
	if len(peerPublic) != 65 {
		return nil, fmt.Errorf("crypto: ecdh peer public key must be 65 bytes, got %d", len(peerPublic))
	}

	curve := ecdh.P256()
	privKey, err := curve.NewPrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid ecdh private key: %w", err)
	}
	pubKey, err := curve.NewPublicKey(peerPublic)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid ecdh peer public key: %w", err)
	}
	shared, err := privKey.ECDH(pubKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecdh exchange: %w", err)
	}
	return shared, nil
}

// HKDFExtract is the RFC 5869 extract step: HMAC-SHA256(salt, ikm).
func HKDFExtract(salt, ikm []byte) []byte {
	return HMACSHA256(salt, ikm)
}

// HKDFExpand is the RFC 5869 expand step, returning length bytes derived
// from prk and info.
func HKDFExpand(prk, info []byte, length int) ([]byte, error) {
	r := hkdf.Expand(sha256.New, prk, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("crypto: hkdf expand: %w", err)
	}
	return out, nil
}

// HKDFDerive combines extract and expand in a single call.
func HKDFDerive(ikm, salt, info []byte, length int) ([]byte, error) {
	prk := HKDFExtract(salt, ikm)
	return HKDFExpand(prk, info, length)
}

// HMACSHA256 returns the 32-byte HMAC-SHA256 MAC of data under key.
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// EncryptAES128GCM returns ciphertext||tag for plaintext under a 16-byte
// key and 12-byte nonce.
func EncryptAES128GCM(plaintext, key, nonce []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("crypto: aes-128-gcm key must be 16 bytes, got %d", len(key))
	}
	if len(nonce) != 12 {
		return nil, fmt.Errorf("crypto: aes-128-gcm nonce must be 12 bytes, got %d", len(nonce))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm mode: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// ECDSAPrivateKeyFromBase64 reconstructs a *ecdsa.PrivateKey from the
// VAPID-format base64url-encoded 32-byte P-256 private scalar.
func ECDSAPrivateKeyFromBase64(privateKeyB64 string) (*ecdsa.PrivateKey, error) {
	scalar, err := DecodeBase64URL(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode vapid private key: %w", err)
	}
	if len(scalar) != 32 {
		return nil, fmt.Errorf("crypto: vapid private key must be 32 bytes, got %d", len(scalar))
	}

	curve := elliptic.P256()
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         new(big.Int).SetBytes(scalar),
	}
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(scalar)
	return priv, nil
}

// SignES256 signs signingInput with the VAPID-format base64url-encoded
// 32-byte P-256 private scalar, returning the raw R||S 64-byte signature
// (not DER).
func SignES256(privateKeyB64 string, signingInput []byte) ([]byte, error) {
	priv, err := ECDSAPrivateKeyFromBase64(privateKeyB64)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(signingInput)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: ecdsa sign: %w", err)
	}

	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}
