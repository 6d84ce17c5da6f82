// Package telegram parses and verifies Mini App init data, the signed
// query string Telegram passes to a web app on launch.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HeaderInitData is the request header that carries raw init data to the API.
const HeaderInitData = "X-Telegram-Init-Data"

// QueryParam is the launch URL parameter holding init data.
const QueryParam = "tgWebAppData"

var (
	ErrMissingHash   = errors.New("telegram: init data has no hash")
	ErrInvalidHash   = errors.New("telegram: init data hash mismatch")
	ErrExpired       = errors.New("telegram: init data expired")
	ErrMissingAuthAt = errors.New("telegram: init data has no auth_date")
)

// User is the Telegram account embedded in init data.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// InitData is the decoded form of a tgWebAppData string.
type InitData struct {
	QueryID      string
	User         *User
	Receiver     *User
	ChatType     string
	ChatInstance string
	StartParam   string
	AuthDate     time.Time
	Hash         string
	Signature    string
	Raw          string
}

// ParseInitData decodes raw init data without checking its signature.
func ParseInitData(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing init data: %w", err)
	}

	d := &InitData{
		QueryID:      values.Get("query_id"),
		ChatType:     values.Get("chat_type"),
		ChatInstance: values.Get("chat_instance"),
		StartParam:   values.Get("start_param"),
		Hash:         values.Get("hash"),
		Signature:    values.Get("signature"),
		Raw:          raw,
	}

	if s := values.Get("auth_date"); s != "" {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing auth_date %q: %w", s, err)
		}
		d.AuthDate = time.Unix(secs, 0).UTC()
	}

	if s := values.Get("user"); s != "" {
		var u User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, fmt.Errorf("parsing user: %w", err)
		}
		d.User = &u
	}
	if s := values.Get("receiver"); s != "" {
		var u User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, fmt.Errorf("parsing receiver: %w", err)
		}
		d.Receiver = &u
	}

	return d, nil
}

// secretKey derives the WebApp signing key from a bot token.
func secretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// dataCheckString joins every field except hash as sorted key=value lines.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func computeHash(values url.Values, botToken string) string {
	mac := hmac.New(sha256.New, secretKey(botToken))
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate checks the init data signature against botToken and, when
// maxAge is positive, rejects data whose auth_date is older than maxAge.
func Validate(raw, botToken string, maxAge time.Duration) (*InitData, error) {
	return validateAt(raw, botToken, maxAge, time.Now())
}

func validateAt(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing init data: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	want := computeHash(values, botToken)
	if !hmac.Equal([]byte(strings.ToLower(hash)), []byte(want)) {
		return nil, ErrInvalidHash
	}

	d, err := ParseInitData(raw)
	if err != nil {
		return nil, err
	}
	if maxAge > 0 {
		if d.AuthDate.IsZero() {
			return nil, ErrMissingAuthAt
		}
		if now.Sub(d.AuthDate) > maxAge {
			return nil, ErrExpired
		}
	}
	return d, nil
}

// Sign computes the hash for values, sets it and returns the encoded init
// data string. It is used by local tooling and tests.
func Sign(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k == "hash" {
			continue
		}
		signed[k] = append([]string(nil), v...)
	}
	signed.Set("hash", computeHash(signed, botToken))
	return signed.Encode()
}
