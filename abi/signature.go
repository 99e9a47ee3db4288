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
	"strings"
)

// Signature returns name(type1,type2,...) with canonical type names.
func Signature(name string, types []Type) string {
	sb := strings.Builder{}
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, t := range types {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// EntrySignature returns the signature of a function or an event.
func EntrySignature(e Entry) (string, bool) {
	switch v := e.(type) {
	case *Function:
		return v.Signature(), true
	case *Event:
		return v.Signature(), true
	default:
		return "", false
	}
}

func checkASCII(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return ErrorCodeNonAsciiSignature.Errorf("non-ASCII name:%q", s)
		}
	}
	return nil
}

// ParseSignature splits "name(type1,...)" into the name and parsed types.
func ParseSignature(sig string) (string, []Type, error) {
	if err := checkASCII(sig); err != nil {
		return "", nil, err
	}
	sig = strings.TrimSpace(sig)
	start := strings.IndexByte(sig, '(')
	if start < 0 || sig[len(sig)-1] != ')' {
		return "", nil, ErrorCodeInvalidType.Errorf("invalid signature:%s", sig)
	}
	name, args := sig[:start], sig[start+1:len(sig)-1]
	if len(strings.TrimSpace(args)) == 0 {
		return name, []Type{}, nil
	}
	types, err := ParseTypes(strings.Split(args, ","))
	if err != nil {
		return "", nil, err
	}
	return name, types, nil
}
