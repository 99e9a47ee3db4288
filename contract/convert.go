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
	"encoding/json"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/btp-abi/abi"
)

var (
	convertLogger = log.New()
)

func init() {
	convertLogger.SetLevel(log.DebugLevel)
}

func MustIntegerOf(value interface{}) Integer {
	ret, err := IntegerOf(value)
	if err != nil {
		log.Panicf("fail to IntegerOf err:%v", err)
	}
	return ret
}

const (
	invalidInteger = ""
)

func IntegerOf(value interface{}) (Integer, error) {
	switch v := value.(type) {
	case Integer:
		if _, err := v.AsBigInt(); err != nil {
			return invalidInteger, err
		}
		return v, nil
	case string:
		return IntegerOf(Integer(v))
	case json.Number:
		return IntegerOf(Integer(v))
	case float64:
		bf := big.NewFloat(v)
		if !bf.IsInt() {
			return invalidInteger, errors.Errorf("not integral value:%v", v)
		}
		bi, _ := bf.Int(nil)
		return FromBigInt(bi), nil
	case big.Int:
		return FromBigInt(&v), nil
	case *big.Int:
		if v == nil {
			return invalidInteger, errors.New("nil big.Int")
		}
		return FromBigInt(v), nil
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() {
			return FromInt64(rv.Int()), nil
		} else if rv.CanUint() {
			return FromUint64(rv.Uint()), nil
		} else {
			return invalidInteger, errors.Errorf("invalid type %T", value)
		}
	}
}

func BooleanOf(value interface{}) (Boolean, error) {
	switch v := value.(type) {
	case Boolean:
		return v, nil
	case bool:
		return Boolean(v), nil
	case string:
		switch v {
		case "true", "0x1":
			return true, nil
		case "false", "0x0":
			return false, nil
		}
		return false, errors.Errorf("invalid boolean value:%s", v)
	default:
		return false, errors.Errorf("invalid type %T", v)
	}
}

func StringOf(value interface{}) (String, error) {
	switch v := value.(type) {
	case String:
		return v, nil
	case string:
		return String(v), nil
	default:
		return "", errors.Errorf("invalid type %T", v)
	}
}

func BytesOf(value interface{}) (Bytes, error) {
	switch v := value.(type) {
	case Bytes:
		return v, nil
	case []byte:
		return v, nil
	case string:
		b, err := hexutil.Decode(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid bytes value:%s err:%s", v, err.Error())
		}
		return b, nil
	case common.Hash:
		return v.Bytes(), nil
	default:
		return nil, errors.Errorf("invalid type %T", v)
	}
}

func AddressOf(value interface{}) (Address, error) {
	switch v := value.(type) {
	case Address:
		if !v.IsValid() {
			return "", errors.Errorf("invalid address value:%s", string(v))
		}
		return v, nil
	case string:
		return AddressOf(Address(v))
	case common.Address:
		return FromAddress(v), nil
	case *common.Address:
		if v == nil {
			return "", errors.New("nil address")
		}
		return FromAddress(*v), nil
	default:
		return "", errors.Errorf("invalid type %T", v)
	}
}

func MustValueOf(t abi.Type, value interface{}) interface{} {
	ret, err := ValueOf(t, value)
	if err != nil {
		log.Panicf("fail to ValueOf err:%v", err)
	}
	return ret
}

// ValueOf converts value into the form abi.Encode accepts for t. Besides
// the native forms, it takes what JSON decoding yields: numbers, hex or
// decimal strings for integers, hex strings for addresses and bytes.
func ValueOf(t abi.Type, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, ErrorCodeInvalidParam.Errorf("nil value for %s", t)
	}
	if v, ok := value.(reflect.Value); ok {
		value = v.Interface()
	}
	switch t.Tag() {
	case abi.TUint, abi.TInt:
		v, err := IntegerOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to ValueOf %s, err:%s", t, err.Error())
		}
		return v.AsBigInt()
	case abi.TAddress:
		v, err := AddressOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to ValueOf %s, err:%s", t, err.Error())
		}
		return v.AsAddress()
	case abi.TBool:
		v, err := BooleanOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to ValueOf %s, err:%s", t, err.Error())
		}
		return bool(v), nil
	case abi.TFixedBytes, abi.TBytes:
		v, err := BytesOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to ValueOf %s, err:%s", t, err.Error())
		}
		return []byte(v), nil
	case abi.TString:
		v, err := StringOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to ValueOf %s, err:%s", t, err.Error())
		}
		return string(v), nil
	case abi.TArray, abi.TDynamicTypeArray, abi.TDynamicArray:
		return arrayValueOf(t, reflect.ValueOf(value))
	default:
		return nil, ErrorCodeInvalidParam.Errorf("not supported type %s", t)
	}
}

func arrayValueOf(t abi.Type, v reflect.Value) (interface{}, error) {
	if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
		return nil, ErrorCodeInvalidParam.Errorf("fail to ValueOf %s, invalid type %v", t, v.Type())
	}
	elem, _ := t.Elem()
	ret := make([]interface{}, v.Len())
	for i := range ret {
		e, err := ValueOf(elem, v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		ret[i] = e
	}
	return ret, nil
}

// JSONValueOf converts a decoded value of t into its JSON form. Integers
// become Integer, addresses Address and bytes Bytes. A topic hash in place
// of an indexed value becomes Bytes.
func JSONValueOf(t abi.Type, value interface{}) (interface{}, error) {
	convertLogger.Traceln("JSONValueOf type:", t.String(), "reflect:", reflect.TypeOf(value))
	if h, ok := value.(common.Hash); ok {
		return Bytes(h.Bytes()), nil
	}
	switch t.Tag() {
	case abi.TUint, abi.TInt:
		v, err := IntegerOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to JSONValueOf %s, err:%s", t, err.Error())
		}
		return v, nil
	case abi.TAddress:
		v, err := AddressOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to JSONValueOf %s, err:%s", t, err.Error())
		}
		return v, nil
	case abi.TBool:
		return BooleanOf(value)
	case abi.TFixedBytes, abi.TBytes:
		v, err := BytesOf(value)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "fail to JSONValueOf %s, err:%s", t, err.Error())
		}
		return v, nil
	case abi.TString:
		return StringOf(value)
	case abi.TArray, abi.TDynamicTypeArray, abi.TDynamicArray:
		v := reflect.ValueOf(value)
		if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
			return nil, ErrorCodeInvalidParam.Errorf("fail to JSONValueOf %s, invalid type %T", t, value)
		}
		elem, _ := t.Elem()
		ret := make([]interface{}, v.Len())
		for i := range ret {
			e, err := JSONValueOf(elem, v.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			ret[i] = e
		}
		return ret, nil
	default:
		return nil, ErrorCodeInvalidParam.Errorf("not supported type %s", t)
	}
}

// ValuesOf converts values of params for args in order.
func ValuesOf(args []abi.Argument, params Params) ([]interface{}, error) {
	if len(params) != len(args) {
		return nil, ErrorCodeInvalidParam.Errorf("invalid length params expected:%d actual:%d", len(args), len(params))
	}
	ret := make([]interface{}, len(args))
	for i, arg := range args {
		k := ArgumentKey(arg.Name, i)
		p, ok := params[k]
		if !ok {
			return nil, ErrorCodeInvalidParam.Errorf("not found param name:%s", k)
		}
		v, err := ValueOf(arg.Type, p)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "invalid param name:%s err:%s", k, err.Error())
		}
		ret[i] = v
	}
	return ret, nil
}

// JSONParamsOf converts decoded params into their JSON form.
func JSONParamsOf(args []abi.Argument, params Params) (Params, error) {
	ret := make(Params)
	for i, arg := range args {
		k := ArgumentKey(arg.Name, i)
		p, ok := params[k]
		if !ok {
			continue
		}
		v, err := JSONValueOf(arg.Type, p)
		if err != nil {
			return nil, err
		}
		ret[k] = v
	}
	return ret, nil
}

// EncodeJSON encodes values given in their JSON form.
func EncodeJSON(types []abi.Type, values []interface{}) ([]byte, error) {
	if len(values) != len(types) {
		return nil, ErrorCodeInvalidParam.Errorf("invalid length values expected:%d actual:%d", len(types), len(values))
	}
	l := make([]interface{}, len(types))
	for i, t := range types {
		v, err := ValueOf(t, values[i])
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "invalid value index:%d err:%s", i, err.Error())
		}
		l[i] = v
	}
	return abi.Encode(types, l)
}

// DecodeJSON decodes data and returns the values in their JSON form.
func DecodeJSON(types []abi.Type, data []byte) ([]interface{}, error) {
	values, err := abi.Decode(types, data)
	if err != nil {
		return nil, err
	}
	for i, t := range types {
		if values[i], err = JSONValueOf(t, values[i]); err != nil {
			return nil, err
		}
	}
	return values, nil
}
