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
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
)

// words joins 64-hex-digit words; short words are left padded with zeros.
func words(l ...string) []byte {
	sb := strings.Builder{}
	for _, w := range l {
		sb.WriteString(strings.Repeat("0", 64-len(w)))
		sb.WriteString(w)
	}
	return common.FromHex(sb.String())
}

// text returns s right padded to a multiple of a word.
func text(s string) string {
	h := hexutil.Encode([]byte(s))[2:]
	if r := len(h) % 64; r != 0 {
		h += strings.Repeat("0", 64-r)
	}
	return h
}

func assertEqualValue(t *testing.T, expected, actual interface{}) bool {
	switch ev := expected.(type) {
	case *big.Int:
		av, ok := actual.(*big.Int)
		if !assert.True(t, ok, "expected *big.Int actual:%T", actual) {
			return false
		}
		return assert.Equal(t, 0, ev.Cmp(av), "expected:%s actual:%s", ev, av)
	case []interface{}:
		av, ok := actual.([]interface{})
		if !assert.True(t, ok, "expected []interface{} actual:%T", actual) {
			return false
		}
		if !assert.Equal(t, len(ev), len(av)) {
			return false
		}
		for i := range ev {
			if !assertEqualValue(t, ev[i], av[i]) {
				return false
			}
		}
		return true
	default:
		return assert.Equal(t, expected, actual)
	}
}

func Test_Encode_HeadTail(t *testing.T) {
	b, err := Encode(
		[]Type{Uint(256), String(), Uint(256)},
		[]interface{}{big.NewInt(5), "hi", big.NewInt(7)})
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	assert.Len(t, b, 5*WordSize)
	assert.Equal(t, words("5", "60", "7", "2", text("hi")), b)
}

func Test_Encode_Vectors(t *testing.T) {
	cases := []struct {
		name     string
		types    string
		values   []interface{}
		expected []byte
	}{
		{
			name:     "baz",
			types:    "baz(uint32,bool)",
			values:   []interface{}{uint32(69), true},
			expected: words("45", "1"),
		},
		{
			name:   "sam",
			types:  "sam(bytes,bool,uint256[])",
			values: []interface{}{[]byte("dave"), true, []interface{}{1, 2, 3}},
			expected: words("60", "1", "a0",
				"4", text("dave"),
				"3", "1", "2", "3"),
		},
		{
			name:  "f",
			types: "f(uint256,uint32[],bytes10,bytes)",
			values: []interface{}{
				big.NewInt(0x123),
				[]interface{}{uint32(0x456), uint32(0x789)},
				[]byte("1234567890"),
				[]byte("Hello, world!"),
			},
			expected: words("123", "80", text("1234567890"), "e0",
				"2", "456", "789",
				"d", text("Hello, world!")),
		},
		{
			name:  "g",
			types: "g(uint256[][],string[])",
			values: []interface{}{
				[]interface{}{[]interface{}{1, 2}, []interface{}{3}},
				[]interface{}{"one", "two", "three"},
			},
			expected: words("40", "140",
				"2", "40", "a0",
				"2", "1", "2",
				"1", "3",
				"3", "60", "a0", "e0",
				"3", text("one"),
				"3", text("two"),
				"5", text("three")),
		},
		{
			name:     "staticArrays",
			types:    "s(uint8[2][2],address)",
			values:   []interface{}{[][]uint8{{1, 2}, {3, 4}}, common.HexToAddress("0x1")},
			expected: words("1", "2", "3", "4", "1"),
		},
		{
			name:   "dynamicTypeArray",
			types:  "d(string[2],uint8)",
			values: []interface{}{[]string{"a", "b"}, 9},
			expected: words("40", "9",
				"40", "80",
				"1", text("a"),
				"1", text("b")),
		},
		{
			name:     "negative",
			types:    "n(int8,int256)",
			values:   []interface{}{-1, big.NewInt(-2)},
			expected: words(strings.Repeat("f", 64), strings.Repeat("f", 63)+"e"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, types, err := ParseSignature(tc.types)
			if err != nil {
				assert.FailNow(t, err.Error())
			}
			b, err := Encode(types, tc.values)
			if err != nil {
				assert.FailNow(t, err.Error())
			}
			assert.Equal(t, hexutil.Encode(tc.expected), hexutil.Encode(b))
		})
	}
}

func Test_RoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	minInt := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	cases := []struct {
		typ   string
		value interface{}
	}{
		{"uint8", big.NewInt(255)},
		{"uint256", maxUint},
		{"uint256", big.NewInt(0)},
		{"int8", big.NewInt(-128)},
		{"int8", big.NewInt(127)},
		{"int24", big.NewInt(-70000)},
		{"int256", minInt},
		{"address", addr},
		{"bool", true},
		{"bool", false},
		{"bytes1", []byte{0xff}},
		{"bytes32", common.HexToHash("0x01").Bytes()},
		{"bytes", []byte{}},
		{"bytes", []byte(strings.Repeat("x", 33))},
		{"string", ""},
		{"string", "héllo"},
		{"uint16[3]", []interface{}{big.NewInt(1), big.NewInt(2), big.NewInt(3)}},
		{"address[]", []interface{}{addr, addr}},
		{"bool[][]", []interface{}{[]interface{}{true}, []interface{}{}, []interface{}{false, true}}},
		{"string[2]", []interface{}{"a", strings.Repeat("b", 40)}},
		{"bytes[1][]", []interface{}{[]interface{}{[]byte("z")}}},
		{"bytes2[2][2]", []interface{}{
			[]interface{}{[]byte{1, 2}, []byte{3, 4}},
			[]interface{}{[]byte{5, 6}, []byte{7, 8}},
		}},
	}
	for _, tc := range cases {
		typ := MustParseType(tc.typ)
		b, err := Encode([]Type{typ, String(), typ}, []interface{}{tc.value, "sep", tc.value})
		if !assert.NoError(t, err, tc.typ) {
			continue
		}
		assert.Equal(t, 0, len(b)%WordSize)
		l, err := Decode([]Type{typ, String(), typ}, b)
		if !assert.NoError(t, err, tc.typ) {
			continue
		}
		assertEqualValue(t, tc.value, l[0])
		assert.Equal(t, "sep", l[1])
		assertEqualValue(t, tc.value, l[2])
	}
}

func Test_Encode_Values(t *testing.T) {
	type myAddress [20]byte
	type myString string
	b, err := Encode(
		[]Type{Uint(64), Int(16), Address(), Bool(), FixedBytes(2), String()},
		[]interface{}{uint64(1), int16(-1), myAddress{19: 1}, true, [2]byte{1, 2}, myString("s")})
	assert.NoError(t, err)
	l, err := Decode([]Type{Uint(64), Int(16), Address(), Bool(), FixedBytes(2), String()}, b)
	assert.NoError(t, err)
	assertEqualValue(t, big.NewInt(1), l[0])
	assertEqualValue(t, big.NewInt(-1), l[1])
	assert.Equal(t, common.HexToAddress("0x01"), l[2])
	assert.Equal(t, []byte{1, 2}, l[4])
	assert.Equal(t, "s", l[5])

	b, err = Encode([]Type{}, []interface{}{})
	assert.NoError(t, err)
	assert.Len(t, b, 0)
	l, err = Decode([]Type{}, b)
	assert.NoError(t, err)
	assert.Len(t, l, 0)
}

func Test_Encode_TypeMismatch(t *testing.T) {
	cases := []struct {
		name   string
		types  []Type
		values []interface{}
		index  int
		path   string
	}{
		{"bool", []Type{Bool()}, []interface{}{1}, 0, ""},
		{"string", []Type{Uint(8), String()}, []interface{}{1, []byte("x")}, 1, ""},
		{"uintRange", []Type{Uint(8)}, []interface{}{256}, 0, ""},
		{"uintNegative", []Type{Uint(256)}, []interface{}{big.NewInt(-1)}, 0, ""},
		{"intRange", []Type{Int(8)}, []interface{}{big.NewInt(128)}, 0, ""},
		{"intRangeNegative", []Type{Int(8)}, []interface{}{-129}, 0, ""},
		{"uintString", []Type{Uint(256)}, []interface{}{"1"}, 0, ""},
		{"nil", []Type{Address()}, []interface{}{nil}, 0, ""},
		{"nilBigInt", []Type{Uint(256)}, []interface{}{(*big.Int)(nil)}, 0, ""},
		{"utf8", []Type{Bool(), String()}, []interface{}{true, "a\xffb"}, 1, ""},
		{"fixedBytesLength", []Type{FixedBytes(4)}, []interface{}{[]byte{1, 2, 3}}, 0, ""},
		{"arrayLength", []Type{Bool(), Array(Bool(), 2)}, []interface{}{true, []bool{true}}, 1, ""},
		{"element", []Type{Uint(256), Bool(), DynamicArray(Uint(256))},
			[]interface{}{1, true, []interface{}{1, "x"}}, 2, "[1]"},
		{"nested", []Type{DynamicArray(Array(String(), 2))},
			[]interface{}{[]interface{}{[]string{"a", "b"}, []interface{}{"c", 3}}}, 0, "[1][1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.types, tc.values)
			assert.Nil(t, b)
			assert.True(t, ErrorCodeTypeMismatch.Equals(err), "err:%v", err)
			tm, ok := err.(TypeMismatchError)
			if !assert.True(t, ok, "err:%T", err) {
				return
			}
			assert.Equal(t, tc.index, tm.Index())
			assert.Equal(t, tc.path, tm.Path())
		})
	}

	_, err := Encode([]Type{Bool()}, []interface{}{true, false})
	assert.True(t, ErrorCodeTypeMismatch.Equals(err))
	_, err = Encode([]Type{Uint(9)}, []interface{}{1})
	assert.True(t, ErrorCodeInvalidType.Equals(err))
}

func Test_Decode_Errors(t *testing.T) {
	cases := []struct {
		name  string
		types []Type
		data  []byte
		code  interface{ Equals(error) bool }
	}{
		{"empty", []Type{Uint(256)}, []byte{}, ErrorCodeBufferTooShort},
		{"shortHead", []Type{Uint(256), Bool()}, words("1"), ErrorCodeBufferTooShort},
		{"shortWord", []Type{Address()}, make([]byte, 31), ErrorCodeBufferTooShort},
		{"staticArray", []Type{Array(Uint(8), 3)}, words("1", "2"), ErrorCodeBufferTooShort},
		{"hugeStaticArray", []Type{Array(Array(Bool(), 1<<40), 1<<40)}, words("1"), ErrorCodeBufferTooShort},
		{"offset", []Type{String()}, words("1000"), ErrorCodeOffsetOutOfRange},
		{"offsetHuge", []Type{Bytes()}, words(strings.Repeat("f", 64)), ErrorCodeOffsetOutOfRange},
		{"offsetAtEnd", []Type{String()}, words("20"), ErrorCodeBufferTooShort},
		{"length", []Type{String()}, words("20", "100", text("abc")), ErrorCodeLengthOverflow},
		{"lengthHuge", []Type{Bytes()}, words("20", strings.Repeat("f", 64)), ErrorCodeLengthOverflow},
		{"arrayLength", []Type{DynamicArray(Uint(256))}, words("20", "3", "1", "2"), ErrorCodeLengthOverflow},
		{"arrayLengthHuge", []Type{DynamicArray(Bool())}, words("20", "ffffffffffffffff", "1"), ErrorCodeLengthOverflow},
		{"nestedOffset", []Type{DynamicArray(String())}, words("20", "1", "500"), ErrorCodeOffsetOutOfRange},
		{"bool", []Type{Bool()}, words("2"), ErrorCodeMalformedValue},
		{"uint8", []Type{Uint(8)}, words("100"), ErrorCodeMalformedValue},
		{"int8", []Type{Int(8)}, words("80"), ErrorCodeMalformedValue},
		{"address", []Type{Address()}, words("1" + strings.Repeat("0", 40)), ErrorCodeMalformedValue},
		{"fixedBytesPadding", []Type{FixedBytes(1)}, words("ff01"), ErrorCodeMalformedValue},
		{"utf8", []Type{String()}, words("20", "1", "ff"+strings.Repeat("0", 62)), ErrorCodeMalformedValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := Decode(tc.types, tc.data)
			assert.Nil(t, l)
			assert.True(t, tc.code.Equals(err), "err:%v", err)
		})
	}
}

func Test_Decode_Lenient(t *testing.T) {
	// trailing bytes and shared tails are accepted
	b := append(words("40", "40", "2", text("hi")), 0xff)
	l, err := Decode([]Type{String(), String()}, b)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{"hi", "hi"}, l)

	v, err := DecodeOne(Int(8), words(strings.Repeat("f", 62)+"80"))
	assert.NoError(t, err)
	assertEqualValue(t, big.NewInt(-128), v)
}

// sharedTails returns bool[][][] whose n outer elements point to one middle
// array, whose n elements point to one inner array of n bools.
func sharedTails(n int) []byte {
	l := []string{"20", fmt.Sprintf("%x", n)}
	for i := 0; i < n; i++ {
		l = append(l, fmt.Sprintf("%x", n*WordSize))
	}
	l = append(l, fmt.Sprintf("%x", n))
	for i := 0; i < n; i++ {
		l = append(l, fmt.Sprintf("%x", n*WordSize))
	}
	l = append(l, fmt.Sprintf("%x", n))
	for i := 0; i < n; i++ {
		l = append(l, "1")
	}
	return words(l...)
}

func Test_Decode_SharedTails(t *testing.T) {
	typ := MustParseType("bool[][][]")

	v, err := DecodeOne(typ, sharedTails(1))
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{[]interface{}{[]interface{}{true}}}, v)

	for _, n := range []int{16, 256} {
		b := sharedTails(n)
		v, err = DecodeOne(typ, b)
		assert.Nil(t, v)
		assert.True(t, ErrorCodeLengthOverflow.Equals(err), "n:%d len:%d err:%v", n, len(b), err)
	}
}
