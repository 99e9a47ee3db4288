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

const (
	MaxIntegerBits      = 256
	MaxFixedBytesLength = 32
)

// Validate reports whether every bit width and byte length in t,
// at any nesting depth, is allowed.
func Validate(t Type) bool {
	return CheckType(t) == nil
}

func (t Type) IsValid() bool {
	return Validate(t)
}

// CheckType is Validate returning the reason as ErrorCodeInvalidType.
func CheckType(t Type) error {
	switch t.tag {
	case TUint, TInt:
		if t.size == 0 || t.size > MaxIntegerBits || t.size%8 != 0 {
			return ErrorCodeInvalidType.Errorf("invalid bit width %d for %s", t.size, t.tag)
		}
	case TFixedBytes:
		if t.size == 0 || t.size > MaxFixedBytesLength {
			return ErrorCodeInvalidType.Errorf("invalid length %d for bytes", t.size)
		}
	case TAddress, TBool, TBytes, TString:
	case TArray, TDynamicTypeArray, TDynamicArray:
		if t.elem == nil {
			return ErrorCodeInvalidType.Errorf("no element type for %s", t.tag)
		}
		if t.tag != TDynamicArray && t.size == 0 {
			return ErrorCodeInvalidType.Errorf("zero length for %s", t.tag)
		}
		if t.tag == TArray && t.elem.IsDynamic() {
			return ErrorCodeInvalidType.Errorf("dynamic element %s in static array", t.elem)
		}
		if t.tag == TDynamicTypeArray && !t.elem.IsDynamic() {
			return ErrorCodeInvalidType.Errorf("static element %s in array of dynamic types", t.elem)
		}
		return CheckType(*t.elem)
	default:
		return ErrorCodeInvalidType.Errorf("unknown type tag %d", t.tag)
	}
	return nil
}

func CheckTypes(types []Type) error {
	for i, t := range types {
		if err := CheckType(t); err != nil {
			return ErrorCodeInvalidType.Wrapf(err, "invalid type index:%d err:%s", i, err.Error())
		}
	}
	return nil
}
