// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	// CodecVersion is the current default codec version
	CodecVersion = 0
)

// Codec is the canonical encoding of keys, values and type tags. Field
// addresses hash these bytes, so the encoding must never change for a given
// CodecVersion.
var (
	Codec codec.Manager
)

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()

	errs := wrappers.Errs{}
	errs.Add(
		Codec.RegisterCodec(CodecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}

// Encode returns the canonical encoding of v.
func Encode(v interface{}) ([]byte, error) {
	return Codec.Marshal(CodecVersion, v)
}

// Decode parses bytes produced by Encode into dst, which must be a pointer.
func Decode(b []byte, dst interface{}) error {
	version, err := Codec.Unmarshal(b, dst)
	if err != nil {
		return err
	}
	if version != CodecVersion {
		return errWrongVersion
	}
	return nil
}
