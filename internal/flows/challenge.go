package flows

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authengine/domain"
)

var errUnsupportedSignature = errors.New("unsupported signature scheme")

// VerifyChallenge checks resp as a signature over nonce by the PEM encoded
// public key pubKeyPEM.
//
// Algorithms: ed25519, rsa-sha256|384|512 (PKCS#1 v1.5),
// ecdsa-sha256|384|512 (ASN.1). Encodings: base64, base64url, hex.
func VerifyChallenge(pubKeyPEM, nonce string, resp *domain.ChallengeResponse) error {
	if resp == nil || resp.Signature == "" {
		return errors.New("missing signature")
	}
	sig, err := decodeSignature(resp.Signature, resp.SignEncoding)
	if err != nil {
		return err
	}

	block, _ := pem.Decode([]byte(pubKeyPEM))
	if block == nil {
		return errors.New("public key is not PEM encoded")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	msg := []byte(nonce)
	alg := strings.ToLower(resp.SignAlgorithm)

	if alg == "ed25519" {
		key, ok := pub.(ed25519.PublicKey)
		if !ok {
			return errors.New("key is not ed25519")
		}
		if !ed25519.Verify(key, msg, sig) {
			return errors.New("signature mismatch")
		}
		return nil
	}

	family, hashName, ok := strings.Cut(alg, "-")
	if !ok {
		return fmt.Errorf("%w: %s", errUnsupportedSignature, resp.SignAlgorithm)
	}
	h, err := hashByName(hashName)
	if err != nil {
		return err
	}
	hasher := h.New()
	hasher.Write(msg)
	digest := hasher.Sum(nil)

	switch family {
	case "rsa":
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return errors.New("key is not rsa")
		}
		return rsa.VerifyPKCS1v15(key, h, digest, sig)
	case "ecdsa":
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return errors.New("key is not ecdsa")
		}
		if !ecdsa.VerifyASN1(key, digest, sig) {
			return errors.New("signature mismatch")
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnsupportedSignature, resp.SignAlgorithm)
	}
}

func hashByName(name string) (crypto.Hash, error) {
	switch name {
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: hash %s", errUnsupportedSignature, name)
	}
}

func decodeSignature(sig, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "base64":
		return base64.StdEncoding.DecodeString(sig)
	case "base64url":
		return base64.RawURLEncoding.DecodeString(strings.TrimRight(sig, "="))
	case "hex":
		return hex.DecodeString(sig)
	default:
		return nil, fmt.Errorf("%w: encoding %s", errUnsupportedSignature, encoding)
	}
}

// ValidatePublicKey reports whether pubKeyPEM holds a key VerifyChallenge
// can use.
func ValidatePublicKey(pubKeyPEM string) error {
	block, _ := pem.Decode([]byte(pubKeyPEM))
	if block == nil {
		return errors.New("public key is not PEM encoded")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	switch pub.(type) {
	case ed25519.PublicKey, *rsa.PublicKey, *ecdsa.PublicKey:
		return nil
	default:
		return errUnsupportedSignature
	}
}
