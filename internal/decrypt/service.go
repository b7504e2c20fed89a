package decrypt

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/fhe"
	"github/tomi204/fhevm-client/internal/util"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

// Loader returns a usable authorization for contracts, creating and storing one
// when none is cached. A nil authorization with a nil error means the signer
// cannot produce one.
type Loader interface {
	LoadOrSign(
		ctx context.Context,
		engine fhe.Engine,
		contracts []common.Address,
		s signer.Signer,
		store Store,
	) (*Authorization, error)
}

// Service is the default Loader.
type Service struct {
	DurationDays int64
	Now          func() time.Time
}

// NewService creates a loader requesting DefaultDurationDays authorizations.
func NewService() *Service {
	return &Service{
		DurationDays: DefaultDurationDays,
		Now:          time.Now,
	}
}

// StorageKey derives the store key for a user and a contract set. The order
// of contracts does not matter.
func StorageKey(user common.Address, contracts []common.Address) string {
	sorted := sortedAddresses(contracts)

	parts := make([][]byte, 0, len(sorted)+1)
	parts = append(parts, user.Bytes())
	for _, c := range sorted {
		parts = append(parts, c.Bytes())
	}

	return crypto.Keccak256Hash(parts...).Hex()
}

func (s *Service) LoadOrSign(
	ctx context.Context,
	engine fhe.Engine,
	contracts []common.Address,
	sig signer.Signer,
	store Store,
) (*Authorization, error) {
	log := util.LogFromContext(ctx)

	typed, ok := sig.(signer.TypedDataSigner)
	if !ok {
		log.Warn().Str("user_address", sig.Address().Hex()).Msg("DecryptService: signer cannot sign typed data")
		return nil, nil
	}

	user := sig.Address()
	contracts = sortedAddresses(contracts)
	key := StorageKey(user, contracts)
	now := s.Now()

	if store != nil {
		cached, err := store.Get(ctx, key)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load decryption authorization")
		}

		if cached.IsValid(now, contracts) {
			log.Debug().Str("key", key).Msg("DecryptService: using cached authorization")
			return cached, nil
		}
	}

	publicKey, privateKey, err := engine.GenerateKeypair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate decryption keypair")
	}

	start := now.Unix()
	typedData, err := engine.CreateEIP712(publicKey, contracts, start, s.DurationDays)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build decryption typed data")
	}

	signature, err := typed.SignTypedData(ctx, *typedData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign decryption authorization")
	}

	auth := &Authorization{
		PrivateKey:        privateKey,
		PublicKey:         publicKey,
		Signature:         hexutil.Encode(signature),
		ContractAddresses: contracts,
		UserAddress:       user,
		StartTimestamp:    start,
		DurationDays:      s.DurationDays,
	}

	if store != nil {
		if err := store.Put(ctx, key, auth); err != nil {
			return nil, errors.Wrap(err, "failed to store decryption authorization")
		}
	}

	log.Info().
		Str("user_address", user.Hex()).
		Int("contracts", len(contracts)).
		Time("expires_at", auth.ExpiresAt()).
		Msg("DecryptService: signed new decryption authorization")

	return auth, nil
}

func sortedAddresses(in []common.Address) []common.Address {
	out := make([]common.Address, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})

	return out
}
