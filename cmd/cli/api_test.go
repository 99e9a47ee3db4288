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

package main

import (
	"encoding/json"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/contract"
)

func Test_ParseValue(t *testing.T) {
	v, err := ParseValue("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", v)

	v, err = ParseValue(`[1, "0x2", 123456789012345678901234567890]`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{json.Number("1"), "0x2", json.Number("123456789012345678901234567890")}, v)

	_, err = ParseValue("[1,")
	assert.Error(t, err)
}

func Test_GetValues(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringSlice("type", nil, "")
	fs.StringArray("value", nil, "")
	require.NoError(t, fs.Parse([]string{
		"--type", "uint256,uint8[]", "--value", "5", "--value", "[1,2]"}))

	l, err := fs.GetStringSlice("type")
	require.NoError(t, err)
	types, err := abi.ParseTypes(l)
	require.NoError(t, err)
	values, err := GetValues(fs, "value")
	require.NoError(t, err)

	b, err := contract.EncodeJSON(types, values)
	require.NoError(t, err)
	r, err := contract.DecodeJSON(types, b)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		contract.Integer("0x5"),
		[]interface{}{contract.Integer("0x1"), contract.Integer("0x2")},
	}, r)
}

func Test_DecodeHex(t *testing.T) {
	b, err := DecodeHex(" 0x0102\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)

	_, err = DecodeHex("0102")
	assert.Error(t, err)
}
