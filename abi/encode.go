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

package abi

import (
	"math/big"
	"reflect"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/icon-project/btp2/common/log"
)

var (
	codecLogger = log.New()
)

func init() {
	codecLogger.SetLevel(log.DebugLevel)
}

// part is the encoding of one element of a tuple. Static parts are
// placed in the head as is, dynamic parts go to the tail and leave an
// offset in the head.
type part struct {
	dynamic bool
	data    []byte
}

// Encode serializes values as a tuple of types. Nothing is returned
// unless every value matches its type.
func Encode(types []Type, values []interface{}) ([]byte, error) {
	if len(types) != len(values) {
		return nil, ErrorCodeTypeMismatch.Errorf("mismatch length types:%d values:%d", len(types), len(values))
	}
	if err := CheckTypes(types); err != nil {
		return nil, err
	}
	parts := make([]part, len(types))
	for i, t := range types {
		p, m := encodeValue(t, values[i])
		if m != nil {
			codecLogger.Tracef("fail to encode index:%d type:%s err:%s", i, t, m.Error())
			return nil, NewTypeMismatchError(i, m.path, m)
		}
		parts[i] = p
	}
	b := layout(parts)
	codecLogger.Tracef("encode types:%v len:%d", types, len(b))
	return b, nil
}

func MustEncode(types []Type, values []interface{}) []byte {
	b, err := Encode(types, values)
	if err != nil {
		log.Panicf("fail to Encode err:%+v", err)
	}
	return b
}

// layout places parts into head and tail. Sizes of all parts are known
// before the first offset is written.
func layout(parts []part) []byte {
	headSize, tailSize := 0, 0
	for _, p := range parts {
		if p.dynamic {
			headSize += WordSize
			tailSize += len(p.data)
		} else {
			headSize += len(p.data)
		}
	}
	out := make([]byte, 0, headSize+tailSize)
	offset := headSize
	for _, p := range parts {
		if p.dynamic {
			out = append(out, encodeUint64(uint64(offset))...)
			offset += len(p.data)
		} else {
			out = append(out, p.data...)
		}
	}
	for _, p := range parts {
		if p.dynamic {
			out = append(out, p.data...)
		}
	}
	return out
}

func encodeUint64(v uint64) []byte {
	return math.U256Bytes(new(big.Int).SetUint64(v))
}

func packBytes(b []byte) []byte {
	l := encodeUint64(uint64(len(b)))
	return append(l, common.RightPadBytes(b, (len(b)+WordSize-1)/WordSize*WordSize)...)
}

func encodeValue(t Type, v interface{}) (part, *mismatch) {
	if v == nil {
		return part{}, mismatchf("nil value for %s", t)
	}
	if rv, ok := v.(reflect.Value); ok {
		v = rv.Interface()
	}
	switch t.tag {
	case TUint, TInt:
		bi, m := integerOf(t, v)
		if m != nil {
			return part{}, m
		}
		return part{data: math.U256Bytes(bi)}, nil
	case TAddress:
		a, ok := addressOf(v)
		if !ok {
			return part{}, mismatchf("expected address, actual:%T", v)
		}
		return part{data: common.LeftPadBytes(a.Bytes(), WordSize)}, nil
	case TBool:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Bool {
			return part{}, mismatchf("expected bool, actual:%T", v)
		}
		word := make([]byte, WordSize)
		if rv.Bool() {
			word[WordSize-1] = 1
		}
		return part{data: word}, nil
	case TFixedBytes:
		b, ok := bytesOf(v)
		if !ok {
			return part{}, mismatchf("expected %s, actual:%T", t, v)
		}
		if uint64(len(b)) != t.size {
			return part{}, mismatchf("expected %s, actual length:%d", t, len(b))
		}
		return part{data: common.RightPadBytes(b, WordSize)}, nil
	case TBytes:
		b, ok := bytesOf(v)
		if !ok {
			return part{}, mismatchf("expected bytes, actual:%T", v)
		}
		return part{dynamic: true, data: packBytes(b)}, nil
	case TString:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return part{}, mismatchf("expected string, actual:%T", v)
		}
		if !utf8.ValidString(rv.String()) {
			return part{}, mismatchf("invalid UTF-8 string %q", rv.String())
		}
		return part{dynamic: true, data: packBytes([]byte(rv.String()))}, nil
	case TArray, TDynamicTypeArray, TDynamicArray:
		return encodeArray(t, v)
	default:
		return part{}, mismatchf("not supported type %s", t)
	}
}

func encodeArray(t Type, v interface{}) (part, *mismatch) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return part{}, mismatchf("expected %s, actual:%T", t, v)
	}
	n := rv.Len()
	if t.tag != TDynamicArray && uint64(n) != t.size {
		return part{}, mismatchf("expected %s, actual length:%d", t, n)
	}
	parts := make([]part, n)
	for i := 0; i < n; i++ {
		p, m := encodeValue(*t.elem, rv.Index(i).Interface())
		if m != nil {
			return part{}, m.at(i)
		}
		parts[i] = p
	}
	switch t.tag {
	case TArray:
		data := make([]byte, 0, n*int(t.elem.headSize()))
		for _, p := range parts {
			data = append(data, p.data...)
		}
		return part{data: data}, nil
	case TDynamicTypeArray:
		return part{dynamic: true, data: layout(parts)}, nil
	default:
		return part{dynamic: true, data: append(encodeUint64(uint64(n)), layout(parts)...)}, nil
	}
}

func integerOf(t Type, v interface{}) (*big.Int, *mismatch) {
	var bi *big.Int
	switch iv := v.(type) {
	case *big.Int:
		if iv == nil {
			return nil, mismatchf("nil value for %s", t)
		}
		bi = new(big.Int).Set(iv)
	case big.Int:
		bi = new(big.Int).Set(&iv)
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			bi = big.NewInt(rv.Int())
		case rv.CanUint():
			bi = new(big.Int).SetUint64(rv.Uint())
		default:
			return nil, mismatchf("expected %s, actual:%T", t, v)
		}
	}
	if !integerFits(t, bi) {
		return nil, mismatchf("out of range %s value:%s", t, bi)
	}
	return bi, nil
}

func integerFits(t Type, bi *big.Int) bool {
	if t.tag == TUint {
		return bi.Sign() >= 0 && uint64(bi.BitLen()) <= t.size
	}
	if bi.Sign() >= 0 {
		return uint64(bi.BitLen()) < t.size
	}
	// -2^(n-1) <= v  <=>  |v|-1 < 2^(n-1)
	abs := new(big.Int).Neg(bi)
	abs.Sub(abs, common.Big1)
	return uint64(abs.BitLen()) < t.size
}

var (
	addressType = reflect.TypeOf(common.Address{})
)

func addressOf(v interface{}) (common.Address, bool) {
	switch av := v.(type) {
	case common.Address:
		return av, true
	case *common.Address:
		if av == nil {
			return common.Address{}, false
		}
		return *av, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().ConvertibleTo(addressType) {
		return rv.Convert(addressType).Interface().(common.Address), true
	}
	return common.Address{}, false
}

func bytesOf(v interface{}) ([]byte, bool) {
	if b, ok := v.([]byte); ok {
		return b, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), true
		}
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return b, true
		}
	}
	return nil, false
}
