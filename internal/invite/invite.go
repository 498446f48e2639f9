// Package invite encodes a match config as an opaque shareable code. The
// code is pure serialization glue at the boundary: a version prefix plus
// the JSON config, base64url-encoded.
package invite

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cpduel/cpduel/internal/match"
)

const version = "v1"

var ErrBadCode = errors.New("invalid invite code")

// Encode serializes a validated config into an invite code.
func Encode(cfg match.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString([]byte(version + ":" + string(payload))), nil
}

// Decode parses an invite code back into a config. Unknown versions and
// configs that fail validation are rejected.
func Decode(code string) (match.Config, error) {
	raw, err := base64.URLEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		return match.Config{}, fmt.Errorf("%w: %v", ErrBadCode, err)
	}

	prefix, payload, found := strings.Cut(string(raw), ":")
	if !found {
		return match.Config{}, fmt.Errorf("%w: missing version prefix", ErrBadCode)
	}
	if prefix != version {
		return match.Config{}, fmt.Errorf("%w: unsupported version %q", ErrBadCode, prefix)
	}

	var cfg match.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return match.Config{}, fmt.Errorf("%w: %v", ErrBadCode, err)
	}
	if err := cfg.Validate(); err != nil {
		return match.Config{}, err
	}
	return cfg, nil
}
