// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"net/http"

	"github.com/ava-labs/avalanchego/ids"

	log "github.com/inconshreveable/log15"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/settlevm/accumulator"
	"github.com/ava-labs/settlevm/objects"
)

// Service is the API service for this VM
type Service struct{ vm *VM }

// EmptyArgs are the arguments of methods that take none.
type EmptyArgs struct{}

// AccumulatorArgs name the T accumulator of an owner.
type AccumulatorArgs struct {
	Type  objects.TypeTag `json:"type"`
	Owner objects.Address `json:"owner"`
}

// AccumulatorReply is the reply from GetAccumulator
type AccumulatorReply struct {
	Address objects.Address `json:"address"`
	Exists  bool            `json:"exists"`
	Value   objects.U128    `json:"value"`
}

// GetAccumulator returns the value of the [args.Type] accumulator of
// [args.Owner] and the address it lives at. A missing accumulator is reported
// with Exists false and a zero value.
func (s *Service) GetAccumulator(_ *http.Request, args *AccumulatorArgs, reply *AccumulatorReply) error {
	addr, err := accumulator.AccumulatorAddress(args.Type, args.Owner)
	if err != nil {
		return err
	}
	value, exists, err := s.vm.Accumulator(args.Type, args.Owner)
	if err != nil {
		return err
	}
	reply.Address = addr
	reply.Exists = exists
	reply.Value = value
	return nil
}

type FieldTypeArgs struct {
	Address objects.Address `json:"address"`
}

type FieldTypeReply struct {
	Type objects.TypeTag `json:"type"`
}

// GetFieldType returns the type of the value held by the field at
// [args.Address], such as an address returned by GetAccumulator.
func (s *Service) GetFieldType(_ *http.Request, args *FieldTypeArgs, reply *FieldTypeReply) error {
	typ, err := s.vm.FieldType(args.Address)
	if err != nil {
		return err
	}
	reply.Type = typ
	return nil
}

type OwnerArgs struct {
	Owner objects.Address `json:"owner"`
}

type OwnerReply struct {
	Exists bool         `json:"exists"`
	Types  cjson.Uint64 `json:"types"`
}

// HasOwner reports whether [args.Owner] holds any accumulator.
func (s *Service) HasOwner(_ *http.Request, args *OwnerArgs, reply *OwnerReply) error {
	exists, types, err := s.vm.Owner(args.Owner)
	if err != nil {
		return err
	}
	reply.Exists = exists
	reply.Types = cjson.Uint64(types)
	return nil
}

// ReadSettingArgs name a protocol setting. Epoch defaults to the current one.
type ReadSettingArgs struct {
	Name  string        `json:"name"`
	Epoch *cjson.Uint64 `json:"epoch"`
}

type ReadSettingReply struct {
	Epoch      cjson.Uint64 `json:"epoch"`
	Set        bool         `json:"set"`
	Value      cjson.Uint64 `json:"value"`
	PendingSet bool         `json:"pendingSet"`
	Pending    cjson.Uint64 `json:"pending"`
}

// ReadSetting returns the value of [args.Name] in effect during [args.Epoch],
// along with the most recently written value.
func (s *Service) ReadSetting(_ *http.Request, args *ReadSettingArgs, reply *ReadSettingReply) error {
	var epoch uint64
	if args.Epoch != nil {
		epoch = uint64(*args.Epoch)
	} else {
		current, err := s.vm.Epoch()
		if err != nil {
			return err
		}
		epoch = current
	}

	value, set, err := s.vm.ReadSetting(args.Name, epoch)
	if err != nil {
		return err
	}
	pending, pendingSet, err := s.vm.PendingSetting(args.Name)
	if err != nil {
		return err
	}
	reply.Epoch = cjson.Uint64(epoch)
	reply.Set = set
	reply.Value = cjson.Uint64(value)
	reply.PendingSet = pendingSet
	reply.Pending = cjson.Uint64(pending)
	return nil
}

// SubmitCheckpoint settles the accumulator writes of a checkpoint.
func (s *Service) SubmitCheckpoint(_ *http.Request, args *Checkpoint, reply *SettlementRecord) error {
	if s.vm.readOnlyAPI {
		return ErrReadOnlyAPI
	}
	record, err := s.vm.ExecuteCheckpoint(args)
	if err != nil {
		return err
	}
	*reply = *record
	return nil
}

type SetConfigArgs struct {
	Name  string       `json:"name"`
	Value cjson.Uint64 `json:"value"`
}

// TxReply carries the digest of an executed transaction.
type TxReply struct {
	TxID ids.ID `json:"txID"`
}

// SetConfig writes protocol setting [args.Name] for the next epoch.
func (s *Service) SetConfig(_ *http.Request, args *SetConfigArgs, reply *TxReply) error {
	log.Debug("settlevm: SetConfig called", "name", args.Name, "value", uint64(args.Value))
	if s.vm.readOnlyAPI {
		return ErrReadOnlyAPI
	}
	txID, err := s.vm.Execute(&SetConfigTx{Name: args.Name, Value: uint64(args.Value)})
	if err != nil {
		return err
	}
	reply.TxID = txID
	return nil
}

type RemoveConfigArgs struct {
	Name string `json:"name"`
}

// RemoveConfig clears protocol setting [args.Name] from the next epoch on.
func (s *Service) RemoveConfig(_ *http.Request, args *RemoveConfigArgs, reply *TxReply) error {
	log.Debug("settlevm: RemoveConfig called", "name", args.Name)
	if s.vm.readOnlyAPI {
		return ErrReadOnlyAPI
	}
	txID, err := s.vm.Execute(&RemoveConfigTx{Name: args.Name})
	if err != nil {
		return err
	}
	reply.TxID = txID
	return nil
}

// LastCheckpoint returns the record of the last settled checkpoint.
func (s *Service) LastCheckpoint(_ *http.Request, _ *EmptyArgs, reply *SettlementRecord) error {
	record, err := s.vm.LastCheckpoint()
	if err != nil {
		return err
	}
	*reply = *record
	return nil
}

type EpochReply struct {
	Epoch    cjson.Uint64    `json:"epoch"`
	ConfigID objects.Address `json:"configID"`
}

// GetEpoch returns the current epoch and the protocol config's address.
func (s *Service) GetEpoch(_ *http.Request, _ *EmptyArgs, reply *EpochReply) error {
	epoch, err := s.vm.Epoch()
	if err != nil {
		return err
	}
	reply.Epoch = cjson.Uint64(epoch)
	reply.ConfigID = s.vm.ConfigID()
	return nil
}
