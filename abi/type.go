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
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	WordSize = 32

	maxWords = math.MaxUint64 / WordSize
)

type TypeTag int

const (
	TUnknown TypeTag = iota
	// static
	TUint
	TInt
	TAddress
	TBool
	TFixedBytes
	TArray
	// dynamic
	TBytes
	TString
	TDynamicArray
	TDynamicTypeArray
)

var (
	typeTagNames = []string{
		"Unknown", "Uint", "Int", "Address", "Bool", "FixedBytes", "Array",
		"Bytes", "String", "DynamicArray", "DynamicTypeArray",
	}
)

func (t TypeTag) String() string {
	if t < 0 || int(t) >= len(typeTagNames) {
		return typeTagNames[TUnknown]
	}
	return typeTagNames[t]
}

func (t TypeTag) IsDynamic() bool {
	return t >= TBytes
}

type ArraySizeKind int

const (
	NotArray ArraySizeKind = iota
	StaticSize
	DynamicSize
)

type ArraySize struct {
	Kind   ArraySizeKind
	Length uint64
}

// Type is an ABI parameter type. The zero value is an unknown type which
// never validates. Values are immutable, use the constructors below.
type Type struct {
	tag  TypeTag
	size uint64
	elem *Type
}

func Uint(bits uint64) Type {
	return Type{tag: TUint, size: bits}
}

func Int(bits uint64) Type {
	return Type{tag: TInt, size: bits}
}

func Address() Type {
	return Type{tag: TAddress}
}

func Bool() Type {
	return Type{tag: TBool}
}

func FixedBytes(length uint64) Type {
	return Type{tag: TFixedBytes, size: length}
}

func Bytes() Type {
	return Type{tag: TBytes}
}

func String() Type {
	return Type{tag: TString}
}

// Array returns a fixed-length array of elem. The result is static when
// elem is static, otherwise it is an array of dynamic types.
func Array(elem Type, length uint64) Type {
	e := elem
	if elem.IsDynamic() {
		return Type{tag: TDynamicTypeArray, size: length, elem: &e}
	}
	return Type{tag: TArray, size: length, elem: &e}
}

// DynamicArray returns a variable-length array of elem.
func DynamicArray(elem Type) Type {
	e := elem
	return Type{tag: TDynamicArray, elem: &e}
}

func (t Type) Tag() TypeTag {
	return t.tag
}

// Size returns the bit width of integers, the length of fixed bytes or
// the length of fixed arrays. It's zero for other types.
func (t Type) Size() uint64 {
	switch t.tag {
	case TUint, TInt, TFixedBytes, TArray, TDynamicTypeArray:
		return t.size
	default:
		return 0
	}
}

func (t Type) IsDynamic() bool {
	return t.tag.IsDynamic()
}

func (t Type) IsArray() bool {
	switch t.tag {
	case TArray, TDynamicArray, TDynamicTypeArray:
		return true
	default:
		return false
	}
}

func (t Type) ArraySize() ArraySize {
	switch t.tag {
	case TArray, TDynamicTypeArray:
		return ArraySize{Kind: StaticSize, Length: t.size}
	case TDynamicArray:
		return ArraySize{Kind: DynamicSize}
	default:
		return ArraySize{Kind: NotArray}
	}
}

// Elem returns the immediate element type of an array.
func (t Type) Elem() (Type, bool) {
	if !t.IsArray() || t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// WordCount returns the number of 32-byte words a static value occupies.
// It returns false for dynamic types. The count saturates for arrays too
// large to be addressed.
func (t Type) WordCount() (uint64, bool) {
	switch t.tag {
	case TUint, TInt, TAddress, TBool, TFixedBytes:
		return 1, true
	case TArray:
		if t.elem == nil {
			return 0, false
		}
		n, ok := t.elem.WordCount()
		if !ok {
			return 0, false
		}
		if n != 0 && t.size > maxWords/n {
			return maxWords, true
		}
		return n * t.size, true
	default:
		return 0, false
	}
}

// headSize returns the bytes the type takes in the head of a tuple.
func (t Type) headSize() uint64 {
	if n, ok := t.WordCount(); ok {
		return n * WordSize
	}
	return WordSize
}

// EmptyValue returns the default value of the type. Fixed-length arrays
// are filled with the empty value of the element up to their length.
func (t Type) EmptyValue() interface{} {
	switch t.tag {
	case TUint, TInt:
		return new(big.Int)
	case TAddress:
		return common.Address{}
	case TBool:
		return false
	case TFixedBytes:
		return make([]byte, t.size)
	case TBytes:
		return []byte{}
	case TString:
		return ""
	case TArray, TDynamicTypeArray:
		l := make([]interface{}, t.size)
		for i := range l {
			l[i] = t.elem.EmptyValue()
		}
		return l
	case TDynamicArray:
		return []interface{}{}
	default:
		return nil
	}
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.tag != o.tag || t.Size() != o.Size() {
		return false
	}
	if t.IsArray() {
		if t.elem == nil || o.elem == nil {
			return t.elem == o.elem
		}
		return t.elem.Equal(*o.elem)
	}
	return true
}

// String returns the canonical name used in signatures.
func (t Type) String() string {
	switch t.tag {
	case TUint:
		return "uint" + strconv.FormatUint(t.size, 10)
	case TInt:
		return "int" + strconv.FormatUint(t.size, 10)
	case TAddress:
		return "address"
	case TBool:
		return "bool"
	case TFixedBytes:
		return "bytes" + strconv.FormatUint(t.size, 10)
	case TBytes:
		return "bytes"
	case TString:
		return "string"
	case TArray, TDynamicTypeArray:
		return t.elem.String() + "[" + strconv.FormatUint(t.size, 10) + "]"
	case TDynamicArray:
		return t.elem.String() + "[]"
	default:
		return "unknown"
	}
}

func CanonicalName(t Type) string {
	return t.String()
}
