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

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/contract"
	"github.com/icon-project/btp-abi/database"
	"github.com/icon-project/btp-abi/registry"
)

const (
	tokenABI = `[
  {"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256"}]}
]`
	addr1         = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addr2         = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

func newTestServer(t *testing.T) (*Client, func()) {
	l := log.New()
	db, err := database.OpenDatabase(database.Config{
		Driver: database.DriverSQLite,
		DBName: database.MemoryDBName,
	}, l)
	require.NoError(t, err)
	r, err := registry.New(db, l)
	require.NoError(t, err)
	s := NewServer("", r, log.TraceLevel, l)
	hs := httptest.NewServer(s.Handler())
	return NewClient(hs.URL, log.TraceLevel, l), hs.Close
}

func assertErrorResponse(t *testing.T, code errors.Code, err error) {
	if assert.Error(t, err) {
		er, ok := err.(*ErrorResponse)
		if assert.True(t, ok, "%T", err) {
			assert.Equal(t, code, er.Code, er.Message)
		}
	}
}

func Test_Server_Selector(t *testing.T) {
	c, closeFunc := newTestServer(t)
	defer closeFunc()

	r, err := c.Selector("transfer(address, uint)")
	require.NoError(t, err)
	assert.Equal(t, "transfer(address,uint256)", r.Signature)
	assert.Equal(t, "0xa9059cbb", r.Selector.Hex())

	r, err = c.Selector("Transfer(address,address,uint256)")
	require.NoError(t, err)
	assert.Equal(t, transferTopic, r.Topic.Hex())

	_, err = c.Selector("f(uint7)")
	assertErrorResponse(t, abi.ErrorCodeInvalidType, err)
	_, err = c.Selector("fé()")
	assertErrorResponse(t, abi.ErrorCodeNonAsciiSignature, err)
	_, err = c.Selector("")
	assertErrorResponse(t, errors.IllegalArgumentError, err)
}

func Test_Server_EncodeDecode(t *testing.T) {
	c, closeFunc := newTestServer(t)
	defer closeFunc()

	types := []string{"uint256", "string", "uint256"}
	b, err := c.Encode(types, []interface{}{5, "hi", "0x7"})
	require.NoError(t, err)
	assert.Equal(t, "0x"+
		"0000000000000000000000000000000000000000000000000000000000000005"+
		"0000000000000000000000000000000000000000000000000000000000000060"+
		"0000000000000000000000000000000000000000000000000000000000000007"+
		"0000000000000000000000000000000000000000000000000000000000000002"+
		"6869000000000000000000000000000000000000000000000000000000000000",
		hexutil.Encode(b))

	values, err := c.Decode(types, b)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"0x5", "hi", "0x7"}, values)

	values, err = c.Decode([]string{"address[2]", "bool"}, append(
		common.LeftPadBytes(common.HexToAddress(addr1).Bytes(), 32),
		append(common.LeftPadBytes(common.HexToAddress(addr2).Bytes(), 32),
			common.LeftPadBytes([]byte{1}, 32)...)...))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{[]interface{}{addr1, addr2}, true}, values)

	_, err = c.Encode([]string{"uint8"}, []interface{}{256})
	assertErrorResponse(t, abi.ErrorCodeTypeMismatch, err)
	if er, ok := err.(*ErrorResponse); ok {
		d := &TypeMismatchData{}
		assert.NoError(t, er.UnmarshalData(d))
		assert.Equal(t, 0, d.Index)
	}
	_, err = c.Encode([]string{"uint8"}, nil)
	assertErrorResponse(t, contract.ErrorCodeInvalidParam, err)
	_, err = c.Encode([]string{"tuple"}, []interface{}{1})
	assertErrorResponse(t, abi.ErrorCodeInvalidType, err)
	_, err = c.Decode(types, b[:64])
	assertErrorResponse(t, abi.ErrorCodeBufferTooShort, err)
}

func Test_Server_Contract(t *testing.T) {
	c, closeFunc := newTestServer(t)
	defer closeFunc()

	_, err := c.Contract("token")
	assertErrorResponse(t, registry.ErrorCodeNotFoundContract, err)

	ci, err := c.RegisterContract("token", []byte(tokenABI))
	require.NoError(t, err)
	assert.Equal(t, "token", ci.Name)
	assert.Len(t, ci.Methods, 3)
	if assert.Len(t, ci.Events, 1) {
		assert.Equal(t, transferTopic, ci.Events[0].Selector)
	}

	ci, err = c.Contract("token")
	require.NoError(t, err)
	assert.JSONEq(t, tokenABI, string(ci.ABI))
	names, err := c.Contracts()
	require.NoError(t, err)
	assert.Equal(t, []string{"token"}, names)

	_, err = c.RegisterContract("bad", []byte(`[{"type":"function","name":"f","inputs":[{"type":"uint7"}]}]`))
	assertErrorResponse(t, contract.ErrorCodeInvalidSpec, err)

	data, err := c.Pack("token", "balanceOf", contract.Params{"owner": addr1})
	require.NoError(t, err)
	assert.Equal(t, "0x70a08231000000000000000000000000"+strings.ToLower(addr1[2:]), hexutil.Encode(data))

	params, err := c.UnpackInput("token", "balanceOf", data)
	require.NoError(t, err)
	assert.Equal(t, contract.Params{"owner": addr1}, params)

	params, err = c.Unpack("token", "balanceOf", common.LeftPadBytes([]byte{0x10}, 32))
	require.NoError(t, err)
	assert.Equal(t, contract.Params{"0": "0x10"}, params)

	_, err = c.Pack("token", "transfer", contract.Params{"to": addr1, "value": 1})
	assertErrorResponse(t, contract.ErrorCodeAmbiguousName, err)
	data, err = c.Pack("token", "transfer(address,uint256,bytes)",
		contract.Params{"to": addr1, "value": 1, "data": "0x0102"})
	require.NoError(t, err)
	params, err = c.UnpackInput("token", "transfer(address,uint256,bytes)", data)
	require.NoError(t, err)
	assert.Equal(t, contract.Params{"to": addr1, "value": "0x1", "data": "0x0102"}, params)

	_, err = c.UnpackInput("token", "balanceOf", data)
	assertErrorResponse(t, contract.ErrorCodeMismatchSelector, err)
	_, err = c.Pack("token", "approve", contract.Params{})
	assertErrorResponse(t, contract.ErrorCodeNotFoundMethod, err)
	_, err = c.Pack("unknown", "balanceOf", contract.Params{})
	assertErrorResponse(t, registry.ErrorCodeNotFoundContract, err)

	er, err := c.DecodeEvent("token", &EventRequest{
		Topics: []abi.Topic{
			common.HexToHash(transferTopic),
			common.BytesToHash(common.HexToAddress(addr1).Bytes()),
			common.BytesToHash(common.HexToAddress(addr2).Bytes()),
		},
		Data: common.LeftPadBytes([]byte{0x03}, 32),
	})
	require.NoError(t, err)
	assert.Equal(t, "Transfer(address,address,uint256)", er.Signature)
	assert.Equal(t, contract.Params{"from": addr1, "to": addr2, "value": "0x3"}, er.Params)

	oas, err := c.OpenAPISpec("token")
	require.NoError(t, err)
	assert.NotNil(t, oas.Paths["/api/contracts/token/pack/balanceOf"])
	assert.NotNil(t, oas.Paths["/api/contracts/token/pack/transfer(address,uint256)"])
	assert.NotNil(t, oas.Paths["/api/contracts/token/event"])
}

func Test_Server_Signatures(t *testing.T) {
	c, closeFunc := newTestServer(t)
	defer closeFunc()

	_, err := c.RegisterContract("token", []byte(tokenABI))
	require.NoError(t, err)

	l, err := c.Lookup("0x70a08231")
	require.NoError(t, err)
	if assert.Len(t, l, 1) {
		assert.Equal(t, "balanceOf(address)", l[0].Text)
	}
	l, err = c.Lookup("0x00000000")
	require.NoError(t, err)
	assert.Len(t, l, 0)
	_, err = c.Lookup("0x00")
	assertErrorResponse(t, registry.ErrorCodeInvalidSelector, err)

	s, err := c.RegisterSignature(registry.KindFunction, "burn(uint)")
	require.NoError(t, err)
	assert.Equal(t, "burn(uint256)", s.Text)
	assert.Equal(t, "0x42966c68", s.Selector)
	_, err = c.RegisterSignature("error", "E()")
	assertErrorResponse(t, errors.IllegalArgumentError, err)

	p, err := c.Signatures(registry.KindFunction, database.Pageable{Size: 2, Sort: "text"})
	require.NoError(t, err)
	assert.Equal(t, 4, p.TotalElements)
	assert.Equal(t, 2, p.TotalPages)
	if assert.Len(t, p.Content, 2) {
		assert.Equal(t, "balanceOf(address)", p.Content[0].Text)
		assert.Equal(t, "burn(uint256)", p.Content[1].Text)
	}
	p, err = c.Signatures("", database.Pageable{})
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalElements)

	_, err = c.Signatures("", database.Pageable{Size: 1001})
	assertErrorResponse(t, errors.IllegalArgumentError, err)
	_, err = c.Signatures("", database.Pageable{Sort: "id;"})
	assertErrorResponse(t, errors.IllegalArgumentError, err)
}

func Test_Server_DecodeSession(t *testing.T) {
	c, closeFunc := newTestServer(t)
	defer closeFunc()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := c.DecodeSession(ctx, []string{"uint7"})
	assertErrorResponse(t, abi.ErrorCodeInvalidType, err)

	ds, err := c.DecodeSession(ctx, []string{"uint8", "bool"})
	require.NoError(t, err)
	defer ds.Close()

	values, err := ds.Decode(append(common.LeftPadBytes([]byte{7}, 32), common.LeftPadBytes([]byte{1}, 32)...))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"0x7", true}, values)

	_, err = ds.Decode(common.LeftPadBytes([]byte{7}, 32))
	assertErrorResponse(t, abi.ErrorCodeBufferTooShort, err)

	_, err = ds.Decode(append(common.LeftPadBytes([]byte{1, 0}, 32), common.LeftPadBytes([]byte{1}, 32)...))
	assertErrorResponse(t, abi.ErrorCodeMalformedValue, err)

	values, err = ds.DecodeWith([]string{"string"}, abi.MustEncode([]abi.Type{abi.String()}, []interface{}{"hi"}))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"hi"}, values)

	values, err = ds.Decode(append(common.LeftPadBytes([]byte{0xff}, 32), common.LeftPadBytes([]byte{0}, 32)...))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"0xff", false}, values)
}

func Test_HttpErrorHandler_Status(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(abi.ErrorCodeLengthOverflow.Errorf("overflow")))
	assert.Equal(t, http.StatusNotFound, StatusOf(contract.ErrorCodeNotFoundEvent.Errorf("event")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.Errorf("unknown")))
}
