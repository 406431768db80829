// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/settlevm/objects"
	"github.com/ava-labs/settlevm/settlevm"
)

// StaticClient defines settlevm static API operations.
type StaticClient interface {
	// DeriveAddress returns the address of the field keyed by the canonical
	// encoding [key] under [parent].
	DeriveAddress(ctx context.Context, parent objects.Address, keyType objects.TypeTag, key []byte) (objects.Address, error)

	// AccumulatorAddress returns where the T accumulator of [owner] lives.
	AccumulatorAddress(ctx context.Context, t objects.TypeTag, owner objects.Address) (objects.Address, error)
}

// NewStatic creates a client for the static service served at [uri].
func NewStatic(uri string) StaticClient {
	req := rpc.NewEndpointRequester(uri, "", settlevm.Name)
	return &staticClient{req: req}
}

type staticClient struct {
	req rpc.EndpointRequester
}

func (cli *staticClient) DeriveAddress(ctx context.Context, parent objects.Address, keyType objects.TypeTag, key []byte) (objects.Address, error) {
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, key)
	if err != nil {
		return objects.ZeroAddress, err
	}
	resp := new(settlevm.AddressReply)
	err = cli.req.SendRequest(ctx,
		"deriveAddress",
		&settlevm.DeriveAddressArgs{
			Parent:   parent,
			KeyType:  keyType,
			Key:      encoded,
			Encoding: formatting.Hex,
		},
		resp,
	)
	return resp.Address, err
}

func (cli *staticClient) AccumulatorAddress(ctx context.Context, t objects.TypeTag, owner objects.Address) (objects.Address, error) {
	resp := new(settlevm.AddressReply)
	err := cli.req.SendRequest(ctx,
		"accumulatorAddress",
		&settlevm.AccumulatorArgs{Type: t, Owner: owner},
		resp,
	)
	return resp.Address, err
}
