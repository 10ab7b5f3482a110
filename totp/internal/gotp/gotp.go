// SPDX-License-Identifier: ice License 1.0

package gotp

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"net/url"
	"strconv"
	"strings"

	"github.com/xlzd/gotp"

	"github.com/ice-blockchain/authenticator/totp/internal"
)

type (
	gotpGenerator struct{}
)

func New() internal.Generator {
	return &gotpGenerator{}
}

func (*gotpGenerator) Create(secret string, digits, interval int, algorithm string) internal.TOTP {
	return gotp.NewTOTP(secret, digits, interval, hasher(algorithm))
}

// ProvisioningURI escapes the label and the query exactly once.
// gotp's own BuildUri escapes both twice, so it is not used.
func (*gotpGenerator) ProvisioningURI(secret, account, issuer string, digits, interval int, algorithm string) string {
	query := url.Values{}
	query.Set("secret", secret)
	query.Set("issuer", issuer)
	query.Set("algorithm", strings.ToUpper(algorithm))
	query.Set("digits", strconv.Itoa(digits))
	query.Set("period", strconv.Itoa(interval))
	uri := url.URL{Scheme: "otpauth", Host: "totp", Path: "/" + issuer + ":" + account, RawQuery: query.Encode()}

	return uri.String()
}

// hasher returns nil for SHA1, which gotp treats as its default.
func hasher(algorithm string) *gotp.Hasher {
	var digest func() hash.Hash
	switch strings.ToUpper(algorithm) {
	case "SHA256":
		digest = sha256.New
	case "SHA512":
		digest = sha512.New
	default:
		return nil
	}

	return &gotp.Hasher{HashName: strings.ToLower(algorithm), Digest: digest}
}
