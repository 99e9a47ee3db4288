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
	"strconv"
	"strings"

	"github.com/icon-project/btp2/common/log"
)

// ParseType parses the textual representation of an ABI type like
// "uint256", "bytes32[]" or "string[2][]".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return Type{}, ErrorCodeInvalidType.Errorf("empty type")
	}
	var t Type
	if i := strings.LastIndexByte(s, '['); i > 0 && s[len(s)-1] == ']' {
		elem, err := ParseType(s[:i])
		if err != nil {
			return Type{}, err
		}
		if ls := s[i+1 : len(s)-1]; len(ls) == 0 {
			t = DynamicArray(elem)
		} else {
			l, err := strconv.ParseUint(ls, 10, 64)
			if err != nil {
				return Type{}, ErrorCodeInvalidType.Wrapf(err, "invalid array length type:%s", s)
			}
			t = Array(elem, l)
		}
	} else {
		var err error
		if t, err = parseElementaryType(s); err != nil {
			return Type{}, err
		}
	}
	if err := CheckType(t); err != nil {
		return Type{}, err
	}
	return t, nil
}

func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		log.Panicf("fail to ParseType type:%s err:%v", s, err)
	}
	return t
}

func ParseTypes(l []string) ([]Type, error) {
	ret := make([]Type, len(l))
	for i, s := range l {
		t, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		ret[i] = t
	}
	return ret, nil
}

func parseElementaryType(s string) (Type, error) {
	switch s {
	case "address":
		return Address(), nil
	case "bool":
		return Bool(), nil
	case "string":
		return String(), nil
	case "bytes":
		return Bytes(), nil
	case "uint":
		return Uint(MaxIntegerBits), nil
	case "int":
		return Int(MaxIntegerBits), nil
	}
	for _, p := range []struct {
		prefix string
		of     func(uint64) Type
	}{
		{"uint", Uint},
		{"int", Int},
		{"bytes", FixedBytes},
	} {
		if !strings.HasPrefix(s, p.prefix) {
			continue
		}
		ns := s[len(p.prefix):]
		if len(ns) == 0 || ns[0] < '1' || ns[0] > '9' {
			break
		}
		n, err := strconv.ParseUint(ns, 10, 64)
		if err != nil {
			return Type{}, ErrorCodeInvalidType.Wrapf(err, "invalid size type:%s", s)
		}
		return p.of(n), nil
	}
	return Type{}, ErrorCodeInvalidType.Errorf("not supported type:%s", s)
}
