package utils

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"
	"strings"
)

// SplitSpaceDelimited splits an OAuth space-delimited parameter, dropping empty items
// and duplicates while keeping the first-seen order.
func SplitSpaceDelimited(value string) []string {
	fields := strings.Fields(value)
	result := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		result = append(result, f)
	}
	return result
}

// Contains reports whether values contains target.
func Contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Difference returns the items of values that are not in allowed, in order.
func Difference(values, allowed []string) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	var missing []string
	for _, v := range values {
		if _, ok := allowedSet[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}

// Intersect returns the items of values that are also in allowed, in order.
func Intersect(values, allowed []string) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := allowedSet[v]; ok {
			result = append(result, v)
		}
	}
	return result
}

// Union returns the ordered union of a and b without duplicates.
func Union(a, b []string) []string {
	result := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// LeftHalfHash computes the OIDC hybrid-flow hash (c_hash, at_hash, s_hash) of value:
// the base64url encoding of the left-most half of the hash selected by the JWS algorithm.
func LeftHalfHash(value, algorithm string) string {
	var h hash.Hash
	switch {
	case strings.HasSuffix(algorithm, "384"):
		h = sha512.New384()
	case strings.HasSuffix(algorithm, "512"), algorithm == "EdDSA":
		h = sha512.New()
	default:
		h = sha256.New()
	}
	h.Write([]byte(value))
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
