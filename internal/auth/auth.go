package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Account is a staff login.
type Account struct {
	Username     string `yaml:"username" validate:"required"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role" validate:"required,oneof=admin security cafe library dormitory discipline"`
	PasswordHash string `yaml:"password_hash" validate:"required"`
}

// Claims are carried by staff access tokens.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator checks staff credentials and issues HS256 tokens.
type Authenticator struct {
	accounts map[string]Account
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// New builds an Authenticator. Usernames are matched case-insensitively.
func New(secret string, ttl time.Duration, accounts []Account) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	a := &Authenticator{
		accounts: make(map[string]Account, len(accounts)),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, acc := range accounts {
		key := strings.ToLower(strings.TrimSpace(acc.Username))
		if _, dup := a.accounts[key]; dup {
			return nil, fmt.Errorf("duplicate staff account %q", acc.Username)
		}
		a.accounts[key] = acc
	}
	return a, nil
}

// Login verifies the password and returns a signed token.
func (a *Authenticator) Login(username, password string) (string, Account, error) {
	acc, ok := a.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok || !CheckPasswordHash(password, acc.PasswordHash) {
		return "", Account{}, ErrInvalidCredentials
	}
	token, err := a.CreateAccessToken(acc)
	if err != nil {
		return "", Account{}, err
	}
	return token, acc, nil
}

// CreateAccessToken signs a token for acc.
func (a *Authenticator) CreateAccessToken(acc Account) (string, error) {
	now := a.now()
	claims := Claims{
		Sub:  acc.Username,
		Role: acc.Role,
		Name: acc.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseValidate verifies a token and returns its claims.
func (a *Authenticator) ParseValidate(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
