// Package tablet holds the wire messages of the tablet Traverse RPC and the
// gRPC plumbing that carries them. The messages and service are described
// in tablet.proto; they are encoded with protowire so that optional fields
// stay off the wire exactly as tablets expect.
package tablet

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// TraverseRequest asks a tablet for one page of a partition.
type TraverseRequest struct {
	Tid     uint32
	Pid     uint32
	IdxName string
	// Pk and Ts resume the partition strictly after this record. Ts is only
	// sent together with a non-empty Pk.
	Pk                           string
	Ts                           uint64
	Limit                        uint32
	EnableRemoveDuplicatedRecord bool
}

// TraverseResponse carries back-to-back records in Pairs. Count is the
// number of records in Pairs.
type TraverseResponse struct {
	Code  int32
	Msg   string
	Pairs []byte
	Count uint32
}

// Field numbers of tablet.proto.
const (
	reqTid     protowire.Number = 1
	reqPid     protowire.Number = 2
	reqIdxName protowire.Number = 3
	reqPk      protowire.Number = 4
	reqTs      protowire.Number = 5
	reqLimit   protowire.Number = 6
	reqDedup   protowire.Number = 7

	resCode  protowire.Number = 1
	resMsg   protowire.Number = 2
	resPairs protowire.Number = 3
	resCount protowire.Number = 4
)

func (r *TraverseRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, reqTid, uint64(r.Tid))
	b = appendVarint(b, reqPid, uint64(r.Pid))
	if r.IdxName != "" {
		b = protowire.AppendTag(b, reqIdxName, protowire.BytesType)
		b = protowire.AppendString(b, r.IdxName)
	}
	if r.Pk != "" {
		b = protowire.AppendTag(b, reqPk, protowire.BytesType)
		b = protowire.AppendString(b, r.Pk)
		b = appendVarint(b, reqTs, r.Ts)
	}
	b = appendVarint(b, reqLimit, uint64(r.Limit))
	if r.EnableRemoveDuplicatedRecord {
		b = appendVarint(b, reqDedup, protowire.EncodeBool(true))
	}
	return b, nil
}

func (r *TraverseRequest) Unmarshal(b []byte) error {
	*r = TraverseRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == reqIdxName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.IdxName = v
			return n
		case num == reqPk && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.Pk = v
			return n
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			switch num {
			case reqTid:
				r.Tid = uint32(v)
			case reqPid:
				r.Pid = uint32(v)
			case reqTs:
				r.Ts = v
			case reqLimit:
				r.Limit = uint32(v)
			case reqDedup:
				r.EnableRemoveDuplicatedRecord = protowire.DecodeBool(v)
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func (r *TraverseResponse) Marshal() ([]byte, error) {
	var b []byte
	if r.Code != 0 {
		b = appendVarint(b, resCode, uint64(int64(r.Code)))
	}
	if r.Msg != "" {
		b = protowire.AppendTag(b, resMsg, protowire.BytesType)
		b = protowire.AppendString(b, r.Msg)
	}
	if len(r.Pairs) > 0 {
		b = protowire.AppendTag(b, resPairs, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Pairs)
	}
	if r.Count != 0 {
		b = appendVarint(b, resCount, uint64(r.Count))
	}
	return b, nil
}

func (r *TraverseResponse) Unmarshal(b []byte) error {
	*r = TraverseResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == resMsg && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.Msg = v
			return n
		case num == resPairs && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				r.Pairs = append([]byte(nil), v...)
			}
			return n
		case num == resCode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.Code = int32(v)
			return n
		case num == resCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.Count = uint32(v)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func consumeFields(b []byte, field func(protowire.Number, protowire.Type, []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "tablet: bad tag")
		}
		b = b[n:]
		n = field(num, typ, b)
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "tablet: bad field %d", num)
		}
		b = b[n:]
	}
	return nil
}
