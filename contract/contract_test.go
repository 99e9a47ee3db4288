/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package contract

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/btp-abi/abi"
)

const (
	tokenABI = `[
  {"type":"constructor","inputs":[{"name":"name","type":"string"},{"name":"supply","type":"uint256"}]},
  {"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"names","inputs":[{"name":"ids","type":"uint8[]"}],"outputs":[{"name":"","type":"string[]"},{"name":"","type":"bytes4"}]},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256"}]},
  {"type":"event","name":"Message","inputs":[{"name":"tag","type":"string","indexed":true},{"name":"seq","type":"int64","indexed":true},{"name":"msg","type":"bytes"}]},
  {"type":"event","name":"Raw","inputs":[{"name":"v","type":"uint8","indexed":true}],"anonymous":true}
]`
	addr1 = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addr2 = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func newTestContract(t *testing.T) *Contract {
	c, err := Parse([]byte(tokenABI))
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	return c
}

func Test_Contract_Lookup(t *testing.T) {
	c := newTestContract(t)
	assert.Len(t, c.Methods(), 4)
	assert.Len(t, c.Events(), 3)
	_, ok := c.Constructor()
	assert.True(t, ok)
	_, ok = c.Fallback()
	assert.False(t, ok)

	f, err := c.Method("balanceOf")
	assert.NoError(t, err)
	assert.Equal(t, "0x70a08231", f.Selector().Hex())

	_, err = c.Method("transfer")
	assert.True(t, ErrorCodeAmbiguousName.Equals(err))
	f, err = c.Method("transfer(address,uint256)")
	assert.NoError(t, err)
	assert.Len(t, f.Inputs(), 2)
	_, err = c.Method("transfer(address)")
	assert.True(t, ErrorCodeNotFoundMethod.Equals(err))
	f2, err := c.Method(" transfer( address , uint )")
	assert.NoError(t, err)
	assert.Equal(t, f, f2)
	_, err = c.Method("transfer(address,uint7)")
	assert.True(t, ErrorCodeNotFoundMethod.Equals(err))
	_, err = c.Method("approve")
	assert.True(t, ErrorCodeNotFoundMethod.Equals(err))

	f, err = c.MethodBySelector(abi.Selector{0xa9, 0x05, 0x9c, 0xbb})
	assert.NoError(t, err)
	assert.Equal(t, "transfer(address,uint256)", f.Signature())

	e, err := c.Event("Transfer")
	assert.NoError(t, err)
	e2, err := c.EventByTopic(abi.EventTopic("Transfer(address,address,uint256)"))
	assert.NoError(t, err)
	assert.Equal(t, e, e2)
	e2, err = c.Event("Transfer(address, address, uint)")
	assert.NoError(t, err)
	assert.Equal(t, e, e2)
	e2, err = c.Event("Raw(uint8)")
	assert.NoError(t, err)
	assert.True(t, e2.IsAnonymous())
	_, err = c.Event("Approval")
	assert.True(t, ErrorCodeNotFoundEvent.Equals(err))

	_, err = Parse([]byte(`[{"name":"f"},{"name":"f"}]`))
	assert.True(t, ErrorCodeInvalidSpec.Equals(err))
	_, err = Parse([]byte(`[{"name":"f","inputs":[{"type":"uint7"}]}]`))
	assert.True(t, ErrorCodeInvalidSpec.Equals(err))
}

func Test_Contract_Pack(t *testing.T) {
	c := newTestContract(t)
	b, err := c.Pack("transfer(address,uint256)", Params{
		"to":    addr1,
		"value": "0x10",
	})
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	assert.Equal(t, "0xa9059cbb"+
		"0000000000000000000000005aaeb6053f3e94c9b9a09f33669435e7ef1beaed"+
		"0000000000000000000000000000000000000000000000000000000000000010",
		hexutil.Encode(b))
	assert.NoError(t, c.MatchSelector("transfer(address,uint256)", b))
	assert.True(t, ErrorCodeMismatchSelector.Equals(c.MatchSelector("balanceOf", b)))

	f, params, err := c.UnpackInput(b)
	assert.NoError(t, err)
	assert.Equal(t, "transfer", f.Name())
	assert.Equal(t, common.HexToAddress(addr1), params["to"])
	assert.Equal(t, 0, big.NewInt(16).Cmp(params["value"].(*big.Int)))

	jp, err := JSONParamsOf(f.Inputs(), params)
	assert.NoError(t, err)
	assert.Equal(t, Params{"to": Address(addr1), "value": Integer("0x10")}, jp)

	_, err = c.Pack("transfer(address,uint256)", Params{"to": addr1})
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
	_, err = c.Pack("transfer(address,uint256)", Params{"to": addr1, "amount": 1})
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
	_, err = c.Pack("transfer(address,uint256)", Params{"to": "0x1234", "value": 1})
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
	_, err = c.Pack("transfer(address,uint256)", Params{"to": addr1, "value": -1})
	assert.True(t, abi.ErrorCodeTypeMismatch.Equals(err))

	_, _, err = c.UnpackInput([]byte{0x01})
	assert.True(t, abi.ErrorCodeBufferTooShort.Equals(err))
	_, _, err = c.UnpackInput([]byte{0x01, 0x02, 0x03, 0x04})
	assert.True(t, ErrorCodeNotFoundMethod.Equals(err))
}

func Test_Contract_PackJSON(t *testing.T) {
	c := newTestContract(t)
	var params Params
	d := json.NewDecoder(strings.NewReader(`{"ids":[1,2,"0x3"]}`))
	d.UseNumber()
	assert.NoError(t, d.Decode(&params))
	b, err := c.Pack("names", params)
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	_, decoded, err := c.UnpackInput(b)
	assert.NoError(t, err)
	jp, err := JSONParamsOf([]abi.Argument{{Name: "ids", Type: abi.DynamicArray(abi.Uint(8))}}, decoded)
	assert.NoError(t, err)
	assert.Equal(t, Params{"ids": []interface{}{Integer("0x1"), Integer("0x2"), Integer("0x3")}}, jp)

	ctor, err := c.PackConstructor(Params{"name": "token", "supply": 1000})
	assert.NoError(t, err)
	assert.Len(t, ctor, 4*abi.WordSize)
}

func Test_Contract_Unpack(t *testing.T) {
	c := newTestContract(t)
	data := abi.MustEncode(
		[]abi.Type{abi.DynamicArray(abi.String()), abi.FixedBytes(4)},
		[]interface{}{[]string{"a", "b"}, []byte{1, 2, 3, 4}})
	params, err := c.Unpack("names", data)
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	assert.Equal(t, []interface{}{"a", "b"}, params["0"])
	assert.Equal(t, []byte{1, 2, 3, 4}, params["1"])

	f, _ := c.Method("names")
	jp, err := JSONParamsOf(f.Outputs(), params)
	assert.NoError(t, err)
	b, err := json.Marshal(jp)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"0":["a","b"],"1":"0x01020304"}`, string(b))

	params, err = c.Unpack("transfer(address,uint256)", abi.MustEncode([]abi.Type{abi.Bool()}, []interface{}{true}))
	assert.NoError(t, err)
	assert.Equal(t, Params{"success": true}, params)

	_, err = c.Unpack("names", data[:abi.WordSize])
	assert.True(t, abi.ErrorCodeBufferTooShort.Equals(err))
}

func Test_Contract_Event(t *testing.T) {
	c := newTestContract(t)
	topics, err := c.EventTopics("Transfer", Params{"to": addr2})
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	assert.Len(t, topics, 3)
	assert.Equal(t, abi.EventTopic("Transfer(address,address,uint256)"), *topics[0])
	assert.Nil(t, topics[1])
	assert.Equal(t, common.BytesToHash(common.HexToAddress(addr2).Bytes()), *topics[2])

	value := abi.MustEncode([]abi.Type{abi.Uint(256)}, []interface{}{big.NewInt(7)})
	logTopics := []abi.Topic{
		*topics[0],
		common.BytesToHash(common.HexToAddress(addr1).Bytes()),
		*topics[2],
	}
	e, params, err := c.DecodeEvent(logTopics, value)
	assert.NoError(t, err)
	assert.Equal(t, "Transfer", e.Name())
	assert.Equal(t, common.HexToAddress(addr1), params["from"])
	assert.Equal(t, common.HexToAddress(addr2), params["to"])
	assert.Equal(t, 0, big.NewInt(7).Cmp(params["value"].(*big.Int)))

	_, _, err = c.DecodeEvent(logTopics[:2], value)
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
	_, _, err = c.DecodeEvent([]abi.Topic{{}}, value)
	assert.True(t, ErrorCodeNotFoundEvent.Equals(err))
	_, _, err = c.DecodeEvent(nil, value)
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
}

func Test_Contract_EventHashed(t *testing.T) {
	c := newTestContract(t)
	topics, err := c.EventTopics("Message", Params{"tag": "hello", "seq": -2})
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	assert.Equal(t, abi.Keccak256Hash([]byte("hello")), *topics[1])
	assert.Equal(t, common.HexToHash("0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"), *topics[2])

	data := abi.MustEncode([]abi.Type{abi.Bytes()}, []interface{}{[]byte("msg")})
	e, params, err := c.DecodeEvent([]abi.Topic{*topics[0], *topics[1], *topics[2]}, data)
	assert.NoError(t, err)
	assert.Equal(t, *topics[1], params["tag"])
	assert.Equal(t, 0, big.NewInt(-2).Cmp(params["seq"].(*big.Int)))
	assert.Equal(t, []byte("msg"), params["msg"])

	args := make([]abi.Argument, 0)
	for _, in := range e.Inputs() {
		args = append(args, abi.Argument{Name: in.Name, Type: in.Type})
	}
	jp, err := JSONParamsOf(args, params)
	assert.NoError(t, err)
	assert.Equal(t, Bytes(topics[1].Bytes()), jp["tag"])
	assert.Equal(t, Integer("-0x2"), jp["seq"])
}

func Test_Contract_AnonymousEvent(t *testing.T) {
	c := newTestContract(t)
	topics, err := c.EventTopics("Raw", Params{"v": 5})
	assert.NoError(t, err)
	assert.Len(t, topics, 1)

	params, err := c.DecodeAnonymousEvent("Raw", []abi.Topic{*topics[0]}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(5).Cmp(params["v"].(*big.Int)))

	_, err = c.DecodeAnonymousEvent("Transfer", nil, nil)
	assert.True(t, ErrorCodeInvalidParam.Equals(err))

	// a log whose first topic happens to be the hash of the anonymous signature
	topic := abi.EventTopic("Raw(uint8)")
	_, err = c.EventByTopic(topic)
	assert.True(t, ErrorCodeNotFoundEvent.Equals(err))
	_, _, err = c.DecodeEvent([]abi.Topic{topic, *topics[0]}, nil)
	assert.True(t, ErrorCodeNotFoundEvent.Equals(err))

	_, err = Parse([]byte(`[
  {"type":"event","name":"Raw","inputs":[{"type":"uint8"}],"anonymous":true},
  {"type":"event","name":"Raw","inputs":[{"type":"uint8"}]}
]`))
	assert.True(t, ErrorCodeInvalidSpec.Equals(err))
}

func Test_EncodeJSON(t *testing.T) {
	types := []abi.Type{abi.Uint(256), abi.String(), abi.DynamicArray(abi.Address())}
	values := []interface{}{"0x5", "hi", []interface{}{addr1, strings.ToLower(addr2)}}
	b, err := EncodeJSON(types, values)
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	ret, err := DecodeJSON(types, b)
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	assert.Equal(t, Integer("0x5"), ret[0])
	assert.Equal(t, String("hi"), ret[1])
	assert.Equal(t, []interface{}{Address(addr1), Address(addr2)}, ret[2])

	_, err = EncodeJSON(types, values[:2])
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
	_, err = EncodeJSON(types[:1], []interface{}{"x"})
	assert.True(t, ErrorCodeInvalidParam.Equals(err))
	_, err = DecodeJSON(types, b[:32])
	assert.True(t, abi.ErrorCodeBufferTooShort.Equals(err))
}
