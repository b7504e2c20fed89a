//go:build wireinject

package client

import (
	"github.com/google/wire"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/decrypt"
	"github/tomi204/fhevm-client/internal/metrics"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// clientSet groups the providers required to build a Client from config.
var clientSet = wire.NewSet(
	NewDescriptor,
	NewSigner,
	NewRPCClient,
	NewBoundContract,
	NewEngineProvider,
	NewDecryptStore,
	decryptLoaderSet,
	metrics.New,
	NewOptions,
	New,
)

var decryptLoaderSet = wire.NewSet(
	NewDecryptLoader,
	wire.Bind(new(decrypt.Loader), new(*decrypt.Service)),
)

// InitClient returns a new Client built from cfg. The cleanup function closes
// the RPC connections and the authorization store.
func InitClient(
	_ config.Client,
) (*Client, func(), error) {
	wire.Build(clientSet)
	return new(Client), nil, nil
}
