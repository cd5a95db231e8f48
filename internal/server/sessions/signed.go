package sessions

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/clock"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

const (
	tokenSeparator = "|"
	tokenParts     = 3
)

var tokenEncoding = base64.StdEncoding.Strict()

// SignedStore creates tokens of the form
//
//	base64(username) | base64(expiry) | base64(AES(SHA-256(username|expiry), key))
//
// where expiry is Unix seconds. Nothing is stored server side, so a token
// stays valid until it expires; there is no revocation.
type SignedStore struct {
	key    []byte
	ttl    time.Duration
	clock  clock.Clock
	logger logging.Logger
}

func NewSignedStore(serverKey []byte, ttlDays int, c clock.Clock, l logging.Logger) *SignedStore {
	return &SignedStore{
		key:    serverKey,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		clock:  c,
		logger: logging.OrNop(l).With("module", "signed_sessions"),
	}
}

func (s *SignedStore) Create(_ context.Context, username string) (string, error) {
	expiry := strconv.FormatInt(s.clock.Now().Add(s.ttl).Unix(), 10)

	signature, err := s.sign(username, expiry)
	if err != nil {
		return "", err
	}

	return strings.Join([]string{
		tokenEncoding.EncodeToString([]byte(username)),
		tokenEncoding.EncodeToString([]byte(expiry)),
		tokenEncoding.EncodeToString(signature),
	}, tokenSeparator), nil
}

// Validate never says why a token was rejected; the reason is only logged.
func (s *SignedStore) Validate(ctx context.Context, username, token string) bool {
	if username == "" {
		s.logger.Info(ctx, "rejected session token", "reason", "empty username")
		return false
	}

	parts := strings.Split(token, tokenSeparator)
	if len(parts) != tokenParts {
		s.logger.Info(ctx, "rejected session token", "reason", "part count", "username", username)
		return false
	}

	decoded := make([][]byte, tokenParts)
	for i, part := range parts {
		b, err := tokenEncoding.DecodeString(part)
		if err != nil {
			s.logger.Info(ctx, "rejected session token", "reason", "encoding", "username", username)
			return false
		}
		decoded[i] = b
	}
	tokenUsername, expiry, signature := string(decoded[0]), string(decoded[1]), decoded[2]

	if tokenUsername != username {
		s.logger.Warn(ctx, "rejected session token", "reason", "username mismatch", "username", username)
		return false
	}

	expected, err := s.sign(username, expiry)
	if err != nil {
		s.logger.Error(ctx, "cannot compute token signature", "error", err)
		return false
	}
	if !cryptox.Equal(expected, signature) {
		s.logger.Warn(ctx, "rejected session token", "reason", "signature", "username", username)
		return false
	}

	expiresAt, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		s.logger.Info(ctx, "rejected session token", "reason", "expiry format", "username", username)
		return false
	}
	if time.Unix(expiresAt, 0).Before(s.clock.Now()) {
		s.logger.Info(ctx, "rejected session token", "reason", "expired", "username", username)
		return false
	}

	return true
}

func (s *SignedStore) sign(username, expiry string) ([]byte, error) {
	sig, err := cryptox.Encrypt(cryptox.Digest(username+tokenSeparator+expiry), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return sig, nil
}
