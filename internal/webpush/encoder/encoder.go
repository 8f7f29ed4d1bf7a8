// Package encoder implements the RFC 8291 aes128gcm Web Push payload
// encryption and request-body framing.
package encoder

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	wpcrypto "github.com/arguslabs/argus-go/internal/webpush/crypto"
)

// RecordSize is the fixed aes128gcm record size used for single-record
// Web Push payloads.
const RecordSize = 4096

var webPushInfoPrefix = []byte("WebPush: info\x00")

// Subscription holds the client-supplied push subscription keys: p256dh
// is the 65-byte uncompressed client public key, auth is a 16-byte
// authentication secret.
type Subscription struct {
	Endpoint string
	P256DH   []byte
	Auth     []byte
}

// Encode implements the RFC 8291 derivation and returns the framed
// request body: salt(16) || record_size(4 BE) || keyid_len(1)=65 ||
// server_pub(65) || ciphertext_tag.
func Encode(plaintext []byte, sub Subscription) ([]byte, error) {
	if len(sub.P256DH) != 65 {
		return nil, fmt.Errorf("encoder: p256dh must be 65 bytes, got %d", len(sub.P256DH))
	}
	if len(sub.Auth) != 16 {
		return nil, fmt.Errorf("encoder: auth must be 16 bytes, got %d", len(sub.Auth))
	}

	serverPub, serverPriv, err := wpcrypto.GenerateECDHKeyPair()
	if err != nil {
		return nil, fmt.Errorf("encoder: generate server keypair: %w", err)
	}

	shared, err := wpcrypto.ECDHShared(serverPriv, sub.P256DH)
	if err != nil {
		return nil, fmt.Errorf("encoder: ecdh: %w", err)
	}

	ctx := buildContext(sub.P256DH, serverPub)

	prk, err := wpcrypto.HKDFDerive(shared, sub.Auth, ctx, 32)
	if err != nil {
		return nil, fmt.Errorf("encoder: derive prk: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("encoder: generate salt: %w", err)
	}

	cek, err := wpcrypto.HKDFDerive(prk, salt, []byte("Content-Encoding: aes128gcm\x00"), 16)
	if err != nil {
		return nil, fmt.Errorf("encoder: derive cek: %w", err)
	}
	nonce, err := wpcrypto.HKDFDerive(prk, salt, []byte("Content-Encoding: nonce\x00"), 12)
	if err != nil {
		return nil, fmt.Errorf("encoder: derive nonce: %w", err)
	}

	padded := append(append([]byte{}, plaintext...), 0x02)

	ciphertextTag, err := wpcrypto.EncryptAES128GCM(padded, cek, nonce)
	if err != nil {
		return nil, fmt.Errorf("encoder: encrypt: %w", err)
	}

	return frame(salt, serverPub, ciphertextTag), nil
}

// buildContext builds the web-push info context:
// "WebPush: info\x00" || client_pub(65) || server_pub(65).
func buildContext(clientPub, serverPub []byte) []byte {
	ctx := make([]byte, 0, len(webPushInfoPrefix)+130)
	ctx = append(ctx, webPushInfoPrefix...)
	ctx = append(ctx, clientPub...)
	ctx = append(ctx, serverPub...)
	return ctx
}

// frame assembles the binary request body.
func frame(salt, serverPub, ciphertextTag []byte) []byte {
	out := make([]byte, 0, 16+4+1+65+len(ciphertextTag))
	out = append(out, salt...)

	recordSize := make([]byte, 4)
	binary.BigEndian.PutUint32(recordSize, RecordSize)
	out = append(out, recordSize...)

	out = append(out, byte(len(serverPub)))
	out = append(out, serverPub...)
	out = append(out, ciphertextTag...)
	return out
}
