// Package decrypt obtains and caches the user decryption authorization the
// encryption engine requires before it reveals cleartext for a handle.
package decrypt

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultDurationDays is the validity window requested for new authorizations.
	DefaultDurationDays int64 = 365

	secondsPerDay int64 = 24 * 60 * 60
)

// Authorization is a signed capability permitting UserAddress to decrypt handles
// of ContractAddresses between StartTimestamp and StartTimestamp+DurationDays.
type Authorization struct {
	PrivateKey        string           `json:"privateKey"`
	PublicKey         string           `json:"publicKey"`
	Signature         string           `json:"signature"`
	ContractAddresses []common.Address `json:"contractAddresses"`
	UserAddress       common.Address   `json:"userAddress"`
	StartTimestamp    int64            `json:"startTimestamp"`
	DurationDays      int64            `json:"durationDays"`
}

// ExpiresAt returns the end of the validity window.
func (a *Authorization) ExpiresAt() time.Time {
	return time.Unix(a.StartTimestamp+a.DurationDays*secondsPerDay, 0)
}

// IsValid reports whether the authorization is usable at now for all of contracts.
func (a *Authorization) IsValid(now time.Time, contracts []common.Address) bool {
	if a == nil || a.Signature == "" || a.PrivateKey == "" {
		return false
	}

	if now.Unix() < a.StartTimestamp || !now.Before(a.ExpiresAt()) {
		return false
	}

	allowed := make(map[common.Address]struct{}, len(a.ContractAddresses))
	for _, c := range a.ContractAddresses {
		allowed[c] = struct{}{}
	}

	for _, c := range contracts {
		if _, ok := allowed[c]; !ok {
			return false
		}
	}

	return true
}

// Store persists authorizations by key. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (*Authorization, error)
	Put(ctx context.Context, key string, auth *Authorization) error
}
