package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// URLMode selects how stored objects are exposed.
type URLMode string

const (
	URLModePublic URLMode = "public"
	URLModeSigned URLMode = "signed"
)

// MediaRoute is where the HTTP server mounts the bucket.
const MediaRoute = "/media/"

var (
	ErrInvalidSignature = errors.New("invalid or expired media token")
	ErrSigningSecret    = errors.New("signed URL mode requires a signing secret")
)

// SignerConfig configures a URLSigner.
type SignerConfig struct {
	Mode    URLMode
	BaseURL string
	Secret  string
	TTL     time.Duration
}

type mediaClaims struct {
	jwt.RegisteredClaims
}

// URLSigner turns object paths into displayable URLs. In signed mode every
// URL carries a short-lived HS256 token bound to the object path.
type URLSigner struct {
	mode    URLMode
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewURLSigner validates cfg and creates a signer.
func NewURLSigner(cfg SignerConfig) (*URLSigner, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = URLModePublic
	}
	if mode != URLModePublic && mode != URLModeSigned {
		return nil, fmt.Errorf("unknown storage URL mode %q", mode)
	}
	if mode == URLModeSigned && cfg.Secret == "" {
		return nil, ErrSigningSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &URLSigner{
		mode:    mode,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.Secret),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (s *URLSigner) Mode() URLMode {
	return s.mode
}

// URL returns the URL an object is served from.
func (s *URLSigner) URL(objectPath string) (string, error) {
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}

	u := s.baseURL + MediaRoute + (&url.URL{Path: cleaned}).EscapedPath()
	if s.mode == URLModePublic {
		return u, nil
	}

	token, err := s.sign(cleaned)
	if err != nil {
		return "", err
	}
	return u + "?token=" + url.QueryEscape(token), nil
}

func (s *URLSigner) sign(objectPath string) (string, error) {
	now := s.now()
	claims := mediaClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   objectPath,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign media URL: %w", err)
	}
	return signed, nil
}

// Verify checks that token grants access to objectPath. Public mode grants
// everything.
func (s *URLSigner) Verify(objectPath, token string) error {
	if s.mode == URLModePublic {
		return nil
	}
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidSignature
	}

	parsed, err := jwt.ParseWithClaims(token, &mediaClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ErrInvalidSignature
	}

	claims, ok := parsed.Claims.(*mediaClaims)
	if !ok || claims.Subject != cleaned {
		return ErrInvalidSignature
	}
	return nil
}
