package jwk

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/picatz/josekit/pkg/joseerror"
)

// Set is a JWK set as defined in RFC 7517.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-5
type Set struct {
	// Keys is a list of JWK values.
	//
	// https://datatracker.ietf.org/doc/html/rfc7517#section-5.1
	Keys []Value `json:"keys"`
}

// ParseSet decodes and validates a JSON JWK set.
func ParseSet(data []byte) (*Set, error) {
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "failed to decode JWK set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate validates the JWK set, returning an error of kind
// [joseerror.ErrInvalidJWKFormat] naming every invalid key. Key IDs must be
// unique within the set.
func (s *Set) Validate() error {
	if len(s.Keys) == 0 {
		return joseerror.New(joseerror.ErrInvalidJWKFormat, "no key values in JWK set")
	}

	var result *multierror.Error
	seen := map[string]bool{}

	for i, key := range s.Keys {
		if err := Validate(key); err != nil {
			result = multierror.Append(result, fmt.Errorf("key %d: %w", i, err))
			continue
		}
		if kid := KeyIDOf(key); kid != "" {
			if seen[kid] {
				result = multierror.Append(result, fmt.Errorf("key %d: duplicate key ID %q", i, kid))
			}
			seen[kid] = true
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidJWKFormat, err)
	}
	return nil
}

// Get returns the key that matches the given key ID. An empty key ID
// selects the only key of a single key set.
func (s *Set) Get(keyID string) (Value, error) {
	if keyID == "" {
		if len(s.Keys) == 1 {
			return s.Keys[0], nil
		}
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "no key ID given to select from %d keys", len(s.Keys))
	}

	for _, key := range s.Keys {
		if KeyIDOf(key) == keyID {
			return key, nil
		}
	}

	return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "key %q not found in set", keyID)
}
