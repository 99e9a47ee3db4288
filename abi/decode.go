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
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
)

// Decode reads a tuple of types from b. Integers are returned as
// *big.Int, addresses as common.Address, fixed and dynamic bytes as
// []byte and arrays as []interface{}.
func Decode(types []Type, b []byte) ([]interface{}, error) {
	if err := CheckTypes(types); err != nil {
		return nil, err
	}
	ret, err := decodeTuple(types, b)
	if err != nil {
		codecLogger.Tracef("fail to decode types:%v len:%d err:%s", types, len(b), err.Error())
		return nil, err
	}
	return ret, nil
}

func DecodeOne(t Type, b []byte) (interface{}, error) {
	ret, err := Decode([]Type{t}, b)
	if err != nil {
		return nil, err
	}
	return ret[0], nil
}

// DecodeWorkFactor bounds the words a decode may read to this many times
// the words of its input. Offsets may share a tail, so without the bound
// nested arrays could be read again for every pointer to them.
const DecodeWorkFactor = 4

type decoder struct {
	budget uint64
}

func newDecoder(b []byte) *decoder {
	return &decoder{budget: (uint64(len(b))/WordSize + 1) * DecodeWorkFactor}
}

func (d *decoder) charge(t Type, words uint64) error {
	if words > d.budget {
		return ErrorCodeLengthOverflow.Errorf("decoding %s exceeds %d times the input", t, DecodeWorkFactor)
	}
	d.budget -= words
	return nil
}

func decodeTuple(types []Type, b []byte) ([]interface{}, error) {
	return newDecoder(b).decodeTuple(types, b)
}

func (d *decoder) decodeTuple(types []Type, b []byte) ([]interface{}, error) {
	var headSize uint64
	for _, t := range types {
		if hs := t.headSize(); headSize > math.MaxUint64-hs {
			headSize = math.MaxUint64
		} else {
			headSize += hs
		}
	}
	if uint64(len(b)) < headSize {
		return nil, ErrorCodeBufferTooShort.Errorf("head requires %d bytes, len:%d", headSize, len(b))
	}
	ret := make([]interface{}, len(types))
	pos := 0
	for i, t := range types {
		v, err := d.decodeAt(t, b, pos)
		if err != nil {
			return nil, err
		}
		ret[i] = v
		pos += int(t.headSize())
	}
	return ret, nil
}

// decodeElements reads n elements of elem laid out as a tuple in b.
func (d *decoder) decodeElements(elem Type, n uint64, b []byte) ([]interface{}, error) {
	hs := elem.headSize()
	if n > uint64(len(b))/hs {
		return nil, ErrorCodeBufferTooShort.Errorf("%d elements of %s don't fit in len:%d", n, elem, len(b))
	}
	ret := make([]interface{}, n)
	for i := uint64(0); i < n; i++ {
		v, err := d.decodeAt(elem, b, int(i*hs))
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

// decodeAt reads t whose head is at pos of the tuple b. Offsets of
// dynamic values are relative to the start of b.
func (d *decoder) decodeAt(t Type, b []byte, pos int) (interface{}, error) {
	hs := t.headSize()
	if err := d.charge(t, hs/WordSize); err != nil {
		return nil, err
	}
	if !t.IsDynamic() {
		return decodeStatic(t, b[pos:pos+int(hs)])
	}
	word := new(big.Int).SetBytes(b[pos : pos+WordSize])
	if !word.IsUint64() || word.Uint64() > uint64(len(b)) {
		return nil, ErrorCodeOffsetOutOfRange.Errorf("offset %s out of range for %s, len:%d", word, t, len(b))
	}
	return d.decodeDynamic(t, b[word.Uint64():])
}

func (d *decoder) readLength(t Type, b []byte) (uint64, error) {
	if len(b) < WordSize {
		return 0, ErrorCodeBufferTooShort.Errorf("length of %s requires %d bytes, len:%d", t, WordSize, len(b))
	}
	l := new(big.Int).SetBytes(b[:WordSize])
	if !l.IsUint64() {
		return 0, ErrorCodeLengthOverflow.Errorf("length %s of %s overflows", l, t)
	}
	if err := d.charge(t, 1); err != nil {
		return 0, err
	}
	return l.Uint64(), nil
}

func (d *decoder) decodeDynamic(t Type, b []byte) (interface{}, error) {
	switch t.tag {
	case TBytes, TString:
		l, err := d.readLength(t, b)
		if err != nil {
			return nil, err
		}
		if l > uint64(len(b)-WordSize) {
			return nil, ErrorCodeLengthOverflow.Errorf("length %d of %s overruns buffer len:%d", l, t, len(b)-WordSize)
		}
		if err = d.charge(t, (l+WordSize-1)/WordSize); err != nil {
			return nil, err
		}
		v := make([]byte, l)
		copy(v, b[WordSize:])
		if t.tag == TString {
			if !utf8.Valid(v) {
				return nil, ErrorCodeMalformedValue.Errorf("invalid UTF-8 string %x", v)
			}
			return string(v), nil
		}
		return v, nil
	case TDynamicArray:
		l, err := d.readLength(t, b)
		if err != nil {
			return nil, err
		}
		body := b[WordSize:]
		if l > uint64(len(body))/t.elem.headSize() {
			return nil, ErrorCodeLengthOverflow.Errorf("length %d of %s overruns buffer len:%d", l, t, len(body))
		}
		return d.decodeElements(*t.elem, l, body)
	case TDynamicTypeArray:
		return d.decodeElements(*t.elem, t.size, b)
	default:
		return nil, ErrorCodeInvalidType.Errorf("not dynamic type %s", t)
	}
}

// decodeStatic reads t from w which is exactly t.headSize() bytes.
func decodeStatic(t Type, w []byte) (interface{}, error) {
	switch t.tag {
	case TUint:
		v := new(big.Int).SetBytes(w)
		if uint64(v.BitLen()) > t.size {
			return nil, ErrorCodeMalformedValue.Errorf("value %s overflows %s", v, t)
		}
		return v, nil
	case TInt:
		v := ethmath.S256(new(big.Int).SetBytes(w))
		if !integerFits(t, v) {
			return nil, ErrorCodeMalformedValue.Errorf("value %s overflows %s", v, t)
		}
		return v, nil
	case TAddress:
		for _, c := range w[:WordSize-common.AddressLength] {
			if c != 0 {
				return nil, ErrorCodeMalformedValue.Errorf("invalid address padding %x", w)
			}
		}
		return common.BytesToAddress(w), nil
	case TBool:
		for _, c := range w[:WordSize-1] {
			if c != 0 {
				return nil, ErrorCodeMalformedValue.Errorf("invalid bool %x", w)
			}
		}
		switch w[WordSize-1] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, ErrorCodeMalformedValue.Errorf("invalid bool %x", w)
		}
	case TFixedBytes:
		for _, c := range w[t.size:] {
			if c != 0 {
				return nil, ErrorCodeMalformedValue.Errorf("invalid %s padding %x", t, w)
			}
		}
		v := make([]byte, t.size)
		copy(v, w)
		return v, nil
	case TArray:
		es := int(t.elem.headSize())
		ret := make([]interface{}, t.size)
		for i := range ret {
			v, err := decodeStatic(*t.elem, w[i*es:(i+1)*es])
			if err != nil {
				return nil, err
			}
			ret[i] = v
		}
		return ret, nil
	default:
		return nil, ErrorCodeInvalidType.Errorf("not static type %s", t)
	}
}
