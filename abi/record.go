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
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

const (
	RecordTypeFunction    = "function"
	RecordTypeConstructor = "constructor"
	RecordTypeFallback    = "fallback"
	RecordTypeReceive     = "receive"
	RecordTypeEvent       = "event"

	StateMutabilityPure       = "pure"
	StateMutabilityView       = "view"
	StateMutabilityNonPayable = "nonpayable"
	StateMutabilityPayable    = "payable"
)

// Record is an element of the ABI JSON array.
type Record struct {
	Type            string        `json:"type,omitempty" validate:"omitempty,oneof=function constructor fallback receive event"`
	Name            string        `json:"name,omitempty" validate:"required_if=Type event"`
	Inputs          []RecordInput `json:"inputs,omitempty" validate:"dive"`
	Outputs         []RecordInput `json:"outputs,omitempty" validate:"dive"`
	Constant        bool          `json:"constant,omitempty"`
	Payable         bool          `json:"payable,omitempty"`
	StateMutability string        `json:"stateMutability,omitempty" validate:"omitempty,oneof=pure view nonpayable payable"`
	Anonymous       bool          `json:"anonymous,omitempty"`
}

type RecordInput struct {
	Name    string `json:"name"`
	Type    string `json:"type" validate:"required"`
	Indexed bool   `json:"indexed,omitempty"`
}

var (
	recordValidator = validator.New()
)

func (r *Record) IsConstant() bool {
	return r.Constant ||
		r.StateMutability == StateMutabilityView ||
		r.StateMutability == StateMutabilityPure
}

func (r *Record) IsPayable() bool {
	return r.Payable || r.StateMutability == StateMutabilityPayable
}

func (r *Record) Validate() error {
	if err := recordValidator.Struct(r); err != nil {
		return ErrorCodeInvalidType.Wrapf(err, "invalid record name:%s err:%s", r.Name, err.Error())
	}
	return nil
}

func arguments(l []RecordInput) ([]Argument, error) {
	ret := make([]Argument, len(l))
	for i, in := range l {
		t, err := ParseType(in.Type)
		if err != nil {
			return nil, ErrorCodeInvalidType.Wrapf(err, "invalid input index:%d name:%s err:%s", i, in.Name, err.Error())
		}
		ret[i] = Argument{Name: in.Name, Type: t}
	}
	return ret, nil
}

// NewEntry builds an entry out of the record. A record without type is a
// function.
func NewEntry(r Record) (Entry, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	switch r.Type {
	case RecordTypeFunction, "":
		inputs, err := arguments(r.Inputs)
		if err != nil {
			return nil, err
		}
		outputs, err := arguments(r.Outputs)
		if err != nil {
			return nil, err
		}
		f, err := NewFunction(r.Name, inputs, outputs, r.IsConstant(), r.IsPayable())
		if err != nil {
			return nil, err
		}
		return f, nil
	case RecordTypeConstructor:
		inputs, err := arguments(r.Inputs)
		if err != nil {
			return nil, err
		}
		c, err := NewConstructor(inputs, r.IsConstant(), r.IsPayable())
		if err != nil {
			return nil, err
		}
		return c, nil
	case RecordTypeFallback, RecordTypeReceive:
		return NewFallback(r.IsConstant(), r.IsPayable() || r.Type == RecordTypeReceive), nil
	case RecordTypeEvent:
		inputs := make([]EventArgument, len(r.Inputs))
		for i, in := range r.Inputs {
			t, err := ParseType(in.Type)
			if err != nil {
				return nil, ErrorCodeInvalidType.Wrapf(err, "invalid event input index:%d name:%s err:%s", i, in.Name, err.Error())
			}
			inputs[i] = EventArgument{Name: in.Name, Type: t, Indexed: in.Indexed}
		}
		e, err := NewEvent(r.Name, inputs, r.Anonymous)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, ErrorCodeInvalidType.Errorf("not supported record type:%s", r.Type)
	}
}

// ParseRecords parses ABI JSON into entries in the same order.
func ParseRecords(b []byte) ([]Entry, error) {
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, ErrorCodeInvalidType.Wrapf(err, "fail to unmarshal records err:%s", err.Error())
	}
	ret := make([]Entry, len(records))
	for i, r := range records {
		e, err := NewEntry(r)
		if err != nil {
			return nil, err
		}
		ret[i] = e
	}
	return ret, nil
}
