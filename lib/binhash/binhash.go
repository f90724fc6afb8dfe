// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// shortLength is the number of hex digits ShortDigest keeps.
const shortLength = 12

// HashFile computes the SHA256 digest of the file at path.
func HashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns "sha256:" followed by the full hex digest.
func FormatDigest(digest [32]byte) string {
	return "sha256:" + hex.EncodeToString(digest[:])
}

// ShortDigest returns "sha256:" followed by the leading hex digits.
func ShortDigest(digest [32]byte) string {
	return FormatDigest(digest)[:len("sha256:")+shortLength]
}
