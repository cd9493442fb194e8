package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/inamate/canvasflow/internal/typeid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const tokenTTL = 24 * time.Hour

// Service issues session tokens in exchange for the shared API key. With no
// key hash configured the server runs open and every request is accepted.
type Service struct {
	apiKeyHash []byte
	jwtSecret  []byte
	now        func() time.Time
}

func NewService(apiKeyHash, jwtSecret string) *Service {
	return &Service{
		apiKeyHash: []byte(apiKeyHash),
		jwtSecret:  []byte(jwtSecret),
		now:        time.Now,
	}
}

type AuthResult struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

type Session struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Enabled reports whether requests must carry a token.
func (s *Service) Enabled() bool {
	return len(s.apiKeyHash) > 0
}

// HashKey returns the bcrypt hash to configure as API_KEY_HASH for key.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), 12)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// Login checks apiKey and opens a named session.
func (s *Service) Login(apiKey, name string) (*AuthResult, error) {
	if s.Enabled() {
		if err := bcrypt.CompareHashAndPassword(s.apiKeyHash, []byte(apiKey)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	session := Session{ID: typeid.NewSessionID(), Name: name}
	token, err := s.issueToken(session)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Session: session}, nil
}

func (s *Service) ValidateToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sessionID, ok := claims["sub"].(string)
	if !ok || typeid.Validate(sessionID, typeid.PrefixSession) != nil {
		return nil, errors.New("invalid token subject")
	}
	name, _ := claims["name"].(string)

	return &Session{ID: sessionID, Name: name}, nil
}

func (s *Service) issueToken(session Session) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  session.ID,
		"name": session.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
