// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/formatting"

	"github.com/ava-labs/settlevm/accumulator"
	"github.com/ava-labs/settlevm/objects"
)

// StaticService computes addresses without touching chain state.
type StaticService struct{}

// CreateStaticService ...
func CreateStaticService() *StaticService {
	return &StaticService{}
}

// DeriveAddressArgs are arguments for DeriveAddress. Key holds the canonical
// encoding of the key, in [Encoding].
type DeriveAddressArgs struct {
	Parent   objects.Address     `json:"parent"`
	KeyType  objects.TypeTag     `json:"keyType"`
	Key      string              `json:"key"`
	Encoding formatting.Encoding `json:"encoding"`
}

// AddressReply is the reply from DeriveAddress and AccumulatorAddress
type AddressReply struct {
	Address objects.Address `json:"address"`
}

// DeriveAddress returns the address of the field keyed by [args.Key] under
// [args.Parent].
func (ss *StaticService) DeriveAddress(_ *http.Request, args *DeriveAddressArgs, reply *AddressReply) error {
	key, err := formatting.Decode(args.Encoding, args.Key)
	if err != nil {
		return fmt.Errorf("couldn't decode key: %s", err)
	}
	addr, err := objects.DeriveAddress(args.Parent, args.KeyType, key)
	if err != nil {
		return err
	}
	reply.Address = addr
	return nil
}

// AccumulatorAddress returns the address of the [args.Type] accumulator of
// [args.Owner], whether or not it exists.
func (ss *StaticService) AccumulatorAddress(_ *http.Request, args *AccumulatorArgs, reply *AddressReply) error {
	addr, err := accumulator.AccumulatorAddress(args.Type, args.Owner)
	if err != nil {
		return err
	}
	reply.Address = addr
	return nil
}
