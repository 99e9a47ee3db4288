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

type EntryKind int

const (
	KindFunction EntryKind = iota
	KindConstructor
	KindFallback
	KindEvent
)

var (
	entryKindNames = []string{"function", "constructor", "fallback", "event"}
)

func (k EntryKind) String() string {
	if k < 0 || int(k) >= len(entryKindNames) {
		return "unknown"
	}
	return entryKindNames[k]
}

type Entry interface {
	Kind() EntryKind
}

type Argument struct {
	Name string
	Type Type
}

type EventArgument struct {
	Name    string
	Type    Type
	Indexed bool
}

func Types(args []Argument) []Type {
	ret := make([]Type, len(args))
	for i, a := range args {
		ret[i] = a.Type
	}
	return ret
}

func checkArguments(args []Argument) error {
	for i, a := range args {
		if err := CheckType(a.Type); err != nil {
			return ErrorCodeInvalidType.Wrapf(err, "invalid argument index:%d name:%s err:%s", i, a.Name, err.Error())
		}
	}
	return nil
}

func copyArguments(args []Argument) []Argument {
	ret := make([]Argument, len(args))
	copy(ret, args)
	return ret
}

type Function struct {
	name     string
	inputs   []Argument
	outputs  []Argument
	constant bool
	payable  bool
}

// NewFunction returns a function entry. The name may be empty, but it must
// be ASCII along with the input types since it is hashed into the selector.
func NewFunction(name string, inputs, outputs []Argument, constant, payable bool) (*Function, error) {
	if err := checkArguments(inputs); err != nil {
		return nil, err
	}
	if err := checkArguments(outputs); err != nil {
		return nil, err
	}
	if err := checkASCII(name); err != nil {
		return nil, err
	}
	return &Function{
		name:     name,
		inputs:   copyArguments(inputs),
		outputs:  copyArguments(outputs),
		constant: constant,
		payable:  payable,
	}, nil
}

func (f *Function) Kind() EntryKind {
	return KindFunction
}

func (f *Function) Name() string {
	return f.name
}

func (f *Function) Inputs() []Argument {
	return copyArguments(f.inputs)
}

func (f *Function) Outputs() []Argument {
	return copyArguments(f.outputs)
}

func (f *Function) InputTypes() []Type {
	return Types(f.inputs)
}

func (f *Function) OutputTypes() []Type {
	return Types(f.outputs)
}

func (f *Function) IsConstant() bool {
	return f.constant
}

func (f *Function) IsPayable() bool {
	return f.payable
}

func (f *Function) Signature() string {
	return Signature(f.name, Types(f.inputs))
}

func (f *Function) Selector() Selector {
	return FunctionSelector(f.Signature())
}

type Constructor struct {
	inputs   []Argument
	constant bool
	payable  bool
}

func NewConstructor(inputs []Argument, constant, payable bool) (*Constructor, error) {
	if err := checkArguments(inputs); err != nil {
		return nil, err
	}
	return &Constructor{
		inputs:   copyArguments(inputs),
		constant: constant,
		payable:  payable,
	}, nil
}

func (c *Constructor) Kind() EntryKind {
	return KindConstructor
}

func (c *Constructor) Inputs() []Argument {
	return copyArguments(c.inputs)
}

func (c *Constructor) InputTypes() []Type {
	return Types(c.inputs)
}

func (c *Constructor) IsConstant() bool {
	return c.constant
}

func (c *Constructor) IsPayable() bool {
	return c.payable
}

type Fallback struct {
	constant bool
	payable  bool
}

func NewFallback(constant, payable bool) *Fallback {
	return &Fallback{
		constant: constant,
		payable:  payable,
	}
}

func (f *Fallback) Kind() EntryKind {
	return KindFallback
}

func (f *Fallback) IsConstant() bool {
	return f.constant
}

func (f *Fallback) IsPayable() bool {
	return f.payable
}

type Event struct {
	name      string
	inputs    []EventArgument
	anonymous bool
}

func NewEvent(name string, inputs []EventArgument, anonymous bool) (*Event, error) {
	for i, in := range inputs {
		if err := CheckType(in.Type); err != nil {
			return nil, ErrorCodeInvalidType.Wrapf(err, "invalid event input index:%d name:%s err:%s", i, in.Name, err.Error())
		}
	}
	if err := checkASCII(name); err != nil {
		return nil, err
	}
	l := make([]EventArgument, len(inputs))
	copy(l, inputs)
	return &Event{
		name:      name,
		inputs:    l,
		anonymous: anonymous,
	}, nil
}

func (e *Event) Kind() EntryKind {
	return KindEvent
}

func (e *Event) Name() string {
	return e.name
}

func (e *Event) Inputs() []EventArgument {
	l := make([]EventArgument, len(e.inputs))
	copy(l, e.inputs)
	return l
}

func (e *Event) InputTypes() []Type {
	ret := make([]Type, len(e.inputs))
	for i, in := range e.inputs {
		ret[i] = in.Type
	}
	return ret
}

func (e *Event) IsAnonymous() bool {
	return e.anonymous
}

func (e *Event) Signature() string {
	return Signature(e.name, e.InputTypes())
}

func (e *Event) Topic() Topic {
	return EventTopic(e.Signature())
}
