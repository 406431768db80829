// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/settlevm/objects"
	"github.com/ava-labs/settlevm/settlevm"
)

// Client defines settlevm client operations.
type Client interface {
	// GetAccumulator fetches the T accumulator of an owner.
	GetAccumulator(ctx context.Context, t objects.TypeTag, owner objects.Address) (*settlevm.AccumulatorReply, error)

	// FieldType fetches the type of the value stored in the field at [addr].
	FieldType(ctx context.Context, addr objects.Address) (objects.TypeTag, error)

	// HasOwner reports whether an owner holds any accumulator, and how many.
	HasOwner(ctx context.Context, owner objects.Address) (bool, uint64, error)

	// ReadSetting reads a protocol setting. A nil epoch reads the current one.
	ReadSetting(ctx context.Context, name string, epoch *uint64) (*settlevm.ReadSettingReply, error)

	// SubmitCheckpoint settles a checkpoint's accumulator writes.
	SubmitCheckpoint(ctx context.Context, cp *settlevm.Checkpoint) (*settlevm.SettlementRecord, error)

	// SetConfig writes a protocol setting for the next epoch.
	SetConfig(ctx context.Context, name string, value uint64) (ids.ID, error)

	// RemoveConfig clears a protocol setting from the next epoch on.
	RemoveConfig(ctx context.Context, name string) (ids.ID, error)

	// LastCheckpoint fetches the record of the last settled checkpoint.
	LastCheckpoint(ctx context.Context) (*settlevm.SettlementRecord, error)

	// GetEpoch fetches the current epoch.
	GetEpoch(ctx context.Context) (uint64, error)
}

// New creates a new client object for the service served at [uri].
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri, "", settlevm.Name)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) GetAccumulator(ctx context.Context, t objects.TypeTag, owner objects.Address) (*settlevm.AccumulatorReply, error) {
	resp := new(settlevm.AccumulatorReply)
	err := cli.req.SendRequest(ctx,
		"getAccumulator",
		&settlevm.AccumulatorArgs{Type: t, Owner: owner},
		resp,
	)
	return resp, err
}

func (cli *client) FieldType(ctx context.Context, addr objects.Address) (objects.TypeTag, error) {
	resp := new(settlevm.FieldTypeReply)
	err := cli.req.SendRequest(ctx,
		"getFieldType",
		&settlevm.FieldTypeArgs{Address: addr},
		resp,
	)
	return resp.Type, err
}

func (cli *client) HasOwner(ctx context.Context, owner objects.Address) (bool, uint64, error) {
	resp := new(settlevm.OwnerReply)
	err := cli.req.SendRequest(ctx,
		"hasOwner",
		&settlevm.OwnerArgs{Owner: owner},
		resp,
	)
	return resp.Exists, uint64(resp.Types), err
}

func (cli *client) ReadSetting(ctx context.Context, name string, epoch *uint64) (*settlevm.ReadSettingReply, error) {
	args := &settlevm.ReadSettingArgs{Name: name}
	if epoch != nil {
		e := cjson.Uint64(*epoch)
		args.Epoch = &e
	}
	resp := new(settlevm.ReadSettingReply)
	err := cli.req.SendRequest(ctx, "readSetting", args, resp)
	return resp, err
}

func (cli *client) SubmitCheckpoint(ctx context.Context, cp *settlevm.Checkpoint) (*settlevm.SettlementRecord, error) {
	resp := new(settlevm.SettlementRecord)
	err := cli.req.SendRequest(ctx, "submitCheckpoint", cp, resp)
	return resp, err
}

func (cli *client) SetConfig(ctx context.Context, name string, value uint64) (ids.ID, error) {
	resp := new(settlevm.TxReply)
	err := cli.req.SendRequest(ctx,
		"setConfig",
		&settlevm.SetConfigArgs{Name: name, Value: cjson.Uint64(value)},
		resp,
	)
	return resp.TxID, err
}

func (cli *client) RemoveConfig(ctx context.Context, name string) (ids.ID, error) {
	resp := new(settlevm.TxReply)
	err := cli.req.SendRequest(ctx,
		"removeConfig",
		&settlevm.RemoveConfigArgs{Name: name},
		resp,
	)
	return resp.TxID, err
}

func (cli *client) LastCheckpoint(ctx context.Context) (*settlevm.SettlementRecord, error) {
	resp := new(settlevm.SettlementRecord)
	err := cli.req.SendRequest(ctx, "lastCheckpoint", &settlevm.EmptyArgs{}, resp)
	return resp, err
}

func (cli *client) GetEpoch(ctx context.Context) (uint64, error) {
	resp := new(settlevm.EpochReply)
	err := cli.req.SendRequest(ctx, "getEpoch", &settlevm.EmptyArgs{}, resp)
	return uint64(resp.Epoch), err
}
