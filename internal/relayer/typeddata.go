package relayer

import (
	"encoding/json"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

const eip712DomainType = "EIP712Domain"

type domainPayload struct {
	Name              string          `json:"name"`
	Version           string          `json:"version"`
	ChainID           json.RawMessage `json:"chainId"`
	VerifyingContract string          `json:"verifyingContract"`
	Salt              string          `json:"salt"`
}

// typedDataFromEnvelope turns the relayer authorization payload into go-ethereum
// typed data. The EIP712Domain type and the primary type are derived when the
// relayer leaves them out.
func typedDataFromEnvelope(envelope *authorizationEnvelope) (apitypes.TypedData, error) {
	var td apitypes.TypedData

	if err := json.Unmarshal(envelope.Types, &td.Types); err != nil {
		return td, errors.Wrap(err, "failed to decode typed data types")
	}
	if len(td.Types) == 0 {
		return td, errors.New("typed data has no types")
	}

	var domain domainPayload
	if len(envelope.Domain) > 0 {
		if err := json.Unmarshal(envelope.Domain, &domain); err != nil {
			return td, errors.Wrap(err, "failed to decode typed data domain")
		}
	}

	td.Domain = apitypes.TypedDataDomain{
		Name:              domain.Name,
		Version:           domain.Version,
		VerifyingContract: domain.VerifyingContract,
		Salt:              domain.Salt,
	}

	if chainID, ok, err := parseChainID(domain.ChainID); err != nil {
		return td, err
	} else if ok {
		td.Domain.ChainId = (*math.HexOrDecimal256)(chainID)
	}

	if _, ok := td.Types[eip712DomainType]; !ok {
		td.Types[eip712DomainType] = domainType(td.Domain)
	}

	var message map[string]any
	if err := decodeJSON(envelope.Message, &message); err != nil {
		return td, errors.Wrap(err, "failed to decode typed data message")
	}
	td.Message = apitypes.TypedDataMessage(stringifyNumbers(message).(map[string]any))

	td.PrimaryType = envelope.PrimaryType
	if td.PrimaryType == "" {
		primary, err := derivePrimaryType(td.Types)
		if err != nil {
			return td, err
		}
		td.PrimaryType = primary
	}

	return td, nil
}

func parseChainID(raw json.RawMessage) (*big.Int, bool, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, false, nil
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, false, errors.Errorf("invalid chainId %q", s)
	}

	return v, true, nil
}

func domainType(domain apitypes.TypedDataDomain) []apitypes.Type {
	var fields []apitypes.Type

	if domain.Name != "" {
		fields = append(fields, apitypes.Type{Name: "name", Type: "string"})
	}
	if domain.Version != "" {
		fields = append(fields, apitypes.Type{Name: "version", Type: "string"})
	}
	if domain.ChainId != nil {
		fields = append(fields, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if domain.VerifyingContract != "" {
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if domain.Salt != "" {
		fields = append(fields, apitypes.Type{Name: "salt", Type: "bytes32"})
	}

	return fields
}

// derivePrimaryType returns the single struct type no other type refers to.
func derivePrimaryType(types apitypes.Types) (string, error) {
	referenced := make(map[string]struct{})
	for name, fields := range types {
		if name == eip712DomainType {
			continue
		}
		for _, f := range fields {
			base, _, _ := strings.Cut(f.Type, "[")
			referenced[base] = struct{}{}
		}
	}

	var candidates []string
	for name := range types {
		if name == eip712DomainType {
			continue
		}
		if _, ok := referenced[name]; !ok {
			candidates = append(candidates, name)
		}
	}

	if len(candidates) != 1 {
		sort.Strings(candidates)
		return "", errors.Errorf("cannot derive primary type from %v", candidates)
	}

	return candidates[0], nil
}

// stringifyNumbers replaces json.Number with its decimal string, which the
// typed data encoder accepts for every integer width.
func stringifyNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case map[string]any:
		for k, inner := range t {
			t[k] = stringifyNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = stringifyNumbers(inner)
		}
		return t
	default:
		return v
	}
}
