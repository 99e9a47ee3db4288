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
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
)

// Params binds argument names to values. Unnamed arguments are keyed by
// their position.
type Params map[string]interface{}

// Integer is the JSON form of integers, "0x" prefixed hex with an optional
// leading minus sign. Decimal strings are accepted on input.
type Integer string

func (i Integer) AsBigInt() (*big.Int, error) {
	s, neg := string(i), false
	if strings.HasPrefix(s, "-") {
		s, neg = s[1:], true
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if len(s) == 0 || s[0] == '-' || s[0] == '+' {
		return nil, errors.Errorf("fail to convert big.Int value:%s", string(i))
	}
	r, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, errors.Errorf("fail to convert big.Int value:%s", string(i))
	}
	if neg {
		r.Neg(r)
	}
	return r, nil
}

func (i Integer) AsInt64() (int64, error) {
	bi, err := i.AsBigInt()
	if err != nil {
		return 0, err
	}
	if !bi.IsInt64() {
		return 0, errors.Errorf("overflow int64 value:%s", string(i))
	}
	return bi.Int64(), nil
}

func (i Integer) AsUint64() (uint64, error) {
	bi, err := i.AsBigInt()
	if err != nil {
		return 0, err
	}
	if !bi.IsUint64() {
		return 0, errors.Errorf("overflow uint64 value:%s", string(i))
	}
	return bi.Uint64(), nil
}

func FromInt64(i int64) Integer {
	return FromBigInt(big.NewInt(i))
}

func FromUint64(i uint64) Integer {
	return FromBigInt(new(big.Int).SetUint64(i))
}

func FromBigInt(i *big.Int) Integer {
	if i.Sign() < 0 {
		return Integer("-0x" + new(big.Int).Neg(i).Text(16))
	}
	return Integer("0x" + i.Text(16))
}

type Boolean bool
type String string

// Address is the checksummed hex form of an address.
type Address string

func (a Address) IsValid() bool {
	return common.IsHexAddress(string(a))
}

func (a Address) AsAddress() (common.Address, error) {
	if !a.IsValid() {
		return common.Address{}, errors.Errorf("invalid address value:%s", string(a))
	}
	return common.HexToAddress(string(a)), nil
}

func FromAddress(a common.Address) Address {
	return Address(a.Hex())
}

// Bytes marshals as "0x" prefixed hex.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b).MarshalText()
}

func (b *Bytes) UnmarshalText(input []byte) error {
	return (*hexutil.Bytes)(b).UnmarshalText(input)
}

func (b Bytes) String() string {
	return hexutil.Encode(b)
}
