// Package capability mints and verifies time-limited, tamper-proof
// download tokens for attachments, so the byte-serving path doesn't need
// a database round-trip per request to validate the link itself.
package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// Token is a signed grant for one attachment until ExpiresAt (unix
// seconds).
type Token struct {
	Signature string
	ExpiresAt int64
}

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{
		secret: secret,
		now:    time.Now,
	}
}

// Sign produces a token for attachmentId valid for ttl.
func (s *Signer) Sign(attachmentId int, ttl time.Duration) Token {
	exp := s.now().Add(ttl).Unix()
	return Token{
		Signature: s.mac(attachmentId, exp),
		ExpiresAt: exp,
	}
}

// Verify reports whether sig grants access to attachmentId. An expired
// token and a forged one are indistinguishable to the caller; surface
// both as the same generic failure.
func (s *Signer) Verify(attachmentId int, sig string, expiresAt int64) bool {
	if expiresAt <= 0 || expiresAt < s.now().Unix() {
		return false
	}

	expect := s.mac(attachmentId, expiresAt)
	return hmac.Equal([]byte(expect), []byte(sig))
}

func (s *Signer) mac(attachmentId int, expiresAt int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%d.%d", attachmentId, expiresAt)
	return hex.EncodeToString(h.Sum(nil))
}

// DownloadURL builds the capability-bearing download path for an
// attachment in the room identified by pid.
func DownloadURL(pid string, attachmentId int, tok Token) string {
	return fmt.Sprintf("/api/rooms/k/%s/files/%d?sig=%s&exp=%d",
		url.PathEscape(pid), attachmentId, tok.Signature, tok.ExpiresAt)
}
