package tablet

import (
	"fmt"
	"os"
	"regexp"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"gotest.tools/assert"
)

func fieldNumbers(t *testing.T, b []byte) []protowire.Number {
	t.Helper()
	var nums []protowire.Number
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		assert.Assert(t, n > 0)
		b = b[n:]
		n = protowire.ConsumeFieldValue(num, typ, b)
		assert.Assert(t, n >= 0)
		b = b[n:]
		nums = append(nums, num)
	}
	return nums
}

func TestTraverseRequestOptionalFields(t *testing.T) {
	first := &TraverseRequest{Tid: 1, Pid: 2, Limit: 100}
	b, err := first.Marshal()
	assert.NilError(t, err)
	assert.DeepEqual(t, []protowire.Number{reqTid, reqPid, reqLimit}, fieldNumbers(t, b))

	// a timestamp without a key is not a resume token
	first.Ts = 99
	b, err = first.Marshal()
	assert.NilError(t, err)
	assert.DeepEqual(t, []protowire.Number{reqTid, reqPid, reqLimit}, fieldNumbers(t, b))

	next := &TraverseRequest{Tid: 1, Pid: 2, IdxName: "card", Pk: "k2", Ts: 100, Limit: 100, EnableRemoveDuplicatedRecord: true}
	b, err = next.Marshal()
	assert.NilError(t, err)
	assert.DeepEqual(t, []protowire.Number{reqTid, reqPid, reqIdxName, reqPk, reqTs, reqLimit, reqDedup}, fieldNumbers(t, b))

	var got TraverseRequest
	assert.NilError(t, got.Unmarshal(b))
	assert.DeepEqual(t, *next, got)
}

func TestTraverseResponseSkipsUnknownFields(t *testing.T) {
	res := &TraverseResponse{Code: 0, Pairs: []byte{1, 2, 3}, Count: 1}
	b, err := res.Marshal()
	assert.NilError(t, err)
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendString(b, "last-pk")
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, 12)

	var got TraverseResponse
	assert.NilError(t, got.Unmarshal(b))
	assert.DeepEqual(t, *res, got)
}

func TestTraverseResponseNegativeCode(t *testing.T) {
	res := &TraverseResponse{Code: -1, Msg: "failed"}
	b, err := res.Marshal()
	assert.NilError(t, err)
	var got TraverseResponse
	assert.NilError(t, got.Unmarshal(b))
	assert.Equal(t, int32(-1), got.Code)
	assert.Equal(t, "failed", got.Msg)
}

func TestTraverseResponseTruncated(t *testing.T) {
	res := &TraverseResponse{Pairs: []byte("0123456789")}
	b, err := res.Marshal()
	assert.NilError(t, err)
	var got TraverseResponse
	assert.ErrorContains(t, got.Unmarshal(b[:len(b)-3]), "tablet: bad field 3")
}

func TestFieldNumbersMatchProto(t *testing.T) {
	src, err := os.ReadFile("tablet.proto")
	assert.NilError(t, err)
	fields := map[string]protowire.Number{}
	re := regexp.MustCompile(`(?m)^message (\w+) \{([^}]*)\}`)
	field := regexp.MustCompile(`(\w+) = (\d+);`)
	for _, m := range re.FindAllStringSubmatch(string(src), -1) {
		for _, f := range field.FindAllStringSubmatch(m[2], -1) {
			var n protowire.Number
			fmt.Sscan(f[2], &n)
			fields[m[1]+"."+f[1]] = n
		}
	}
	assert.DeepEqual(t, map[string]protowire.Number{
		"TraverseRequest.tid":                             reqTid,
		"TraverseRequest.pid":                             reqPid,
		"TraverseRequest.idx_name":                        reqIdxName,
		"TraverseRequest.pk":                              reqPk,
		"TraverseRequest.ts":                              reqTs,
		"TraverseRequest.limit":                           reqLimit,
		"TraverseRequest.enable_remove_duplicated_record": reqDedup,
		"TraverseResponse.code":                           resCode,
		"TraverseResponse.msg":                            resMsg,
		"TraverseResponse.pairs":                          resPairs,
		"TraverseResponse.count":                          resCount,
	}, fields)
	assert.Assert(t, regexp.MustCompile(`(?m)^package kvtraverse\.tablet;`).Match(src))
	assert.Equal(t, "/kvtraverse.tablet.TabletServer/Traverse", traverseMethod)
}
