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
	"bytes"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/btp-abi/abi"
)

var (
	contractLogger = log.New()
)

func init() {
	contractLogger.SetLevel(log.DebugLevel)
}

// ArgumentKey returns the key of the argument in Params.
func ArgumentKey(name string, index int) string {
	if name == "" {
		return strconv.Itoa(index)
	}
	return name
}

// Contract binds the entries of a contract interface. Methods and events
// are found by name, by signature, or by selector and topic.
type Contract struct {
	entries     []abi.Entry
	constructor *abi.Constructor
	fallback    *abi.Fallback

	methods   map[string][]*abi.Function
	selectors map[abi.Selector]*abi.Function
	events    map[string][]*abi.Event
	topics    map[abi.Topic]*abi.Event
}

func New(entries []abi.Entry) (*Contract, error) {
	c := &Contract{
		entries:   make([]abi.Entry, len(entries)),
		methods:   make(map[string][]*abi.Function),
		selectors: make(map[abi.Selector]*abi.Function),
		events:    make(map[string][]*abi.Event),
		topics:    make(map[abi.Topic]*abi.Event),
	}
	copy(c.entries, entries)
	for _, e := range entries {
		switch v := e.(type) {
		case *abi.Function:
			s := v.Selector()
			if o, ok := c.selectors[s]; ok {
				return nil, ErrorCodeInvalidSpec.Errorf("duplicated selector %s for %s and %s",
					s, o.Signature(), v.Signature())
			}
			c.selectors[s] = v
			c.methods[v.Name()] = append(c.methods[v.Name()], v)
			contractLogger.Tracef("method signature:%s selector:%s", v.Signature(), s)
		case *abi.Event:
			for _, o := range c.events[v.Name()] {
				if o.Signature() == v.Signature() {
					return nil, ErrorCodeInvalidSpec.Errorf("duplicated event %s", v.Signature())
				}
			}
			c.events[v.Name()] = append(c.events[v.Name()], v)
			// anonymous events don't emit their topic
			if v.IsAnonymous() {
				contractLogger.Tracef("anonymous event signature:%s", v.Signature())
				continue
			}
			t := v.Topic()
			c.topics[t] = v
			contractLogger.Tracef("event signature:%s topic:%s", v.Signature(), t)
		case *abi.Constructor:
			if c.constructor != nil {
				return nil, ErrorCodeInvalidSpec.Errorf("duplicated constructor")
			}
			c.constructor = v
		case *abi.Fallback:
			c.fallback = v
		}
	}
	return c, nil
}

// Parse reads ABI JSON.
func Parse(b []byte) (*Contract, error) {
	entries, err := abi.ParseRecords(b)
	if err != nil {
		return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to ParseRecords err:%s", err.Error())
	}
	return New(entries)
}

func MustParse(b []byte) *Contract {
	c, err := Parse(b)
	if err != nil {
		log.Panicf("fail to Parse err:%+v", err)
	}
	return c
}

func (c *Contract) Entries() []abi.Entry {
	l := make([]abi.Entry, len(c.entries))
	copy(l, c.entries)
	return l
}

func (c *Contract) Constructor() (*abi.Constructor, bool) {
	return c.constructor, c.constructor != nil
}

func (c *Contract) Fallback() (*abi.Fallback, bool) {
	return c.fallback, c.fallback != nil
}

func (c *Contract) Methods() []*abi.Function {
	l := make([]*abi.Function, 0, len(c.selectors))
	for _, e := range c.entries {
		if f, ok := e.(*abi.Function); ok {
			l = append(l, f)
		}
	}
	return l
}

func (c *Contract) Events() []*abi.Event {
	l := make([]*abi.Event, 0, len(c.entries))
	for _, e := range c.entries {
		if ev, ok := e.(*abi.Event); ok {
			l = append(l, ev)
		}
	}
	return l
}

func isSignature(name string) bool {
	return strings.IndexByte(name, '(') >= 0
}

// canonicalSignature rewrites sig with canonical type names and no spaces,
// so "transfer(address, uint)" becomes "transfer(address,uint256)".
func canonicalSignature(sig string) (string, error) {
	name, types, err := abi.ParseSignature(sig)
	if err != nil {
		return "", err
	}
	return abi.Signature(strings.TrimSpace(name), types), nil
}

// Method returns the function of name. An overloaded function must be
// named with its signature like "transfer(address,uint256)".
func (c *Contract) Method(name string) (*abi.Function, error) {
	if isSignature(name) {
		sig, err := canonicalSignature(name)
		if err != nil {
			return nil, ErrorCodeNotFoundMethod.Wrapf(err, "not found method signature:%s err:%s", name, err.Error())
		}
		if f, ok := c.selectors[abi.FunctionSelector(sig)]; ok && f.Signature() == sig {
			return f, nil
		}
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method signature:%s", name)
	}
	l := c.methods[name]
	switch len(l) {
	case 0:
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method name:%s", name)
	case 1:
		return l[0], nil
	default:
		return nil, ErrorCodeAmbiguousName.Errorf("overloaded method name:%s, use signature", name)
	}
}

func (c *Contract) MethodBySelector(s abi.Selector) (*abi.Function, error) {
	f, ok := c.selectors[s]
	if !ok {
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method selector:%s", s)
	}
	return f, nil
}

func (c *Contract) Event(name string) (*abi.Event, error) {
	if isSignature(name) {
		sig, err := canonicalSignature(name)
		if err != nil {
			return nil, ErrorCodeNotFoundEvent.Wrapf(err, "not found event signature:%s err:%s", name, err.Error())
		}
		for _, e := range c.events[sig[:strings.IndexByte(sig, '(')]] {
			if e.Signature() == sig {
				return e, nil
			}
		}
		return nil, ErrorCodeNotFoundEvent.Errorf("not found event signature:%s", name)
	}
	l := c.events[name]
	switch len(l) {
	case 0:
		return nil, ErrorCodeNotFoundEvent.Errorf("not found event name:%s", name)
	case 1:
		return l[0], nil
	default:
		return nil, ErrorCodeAmbiguousName.Errorf("overloaded event name:%s, use signature", name)
	}
}

func (c *Contract) EventByTopic(t abi.Topic) (*abi.Event, error) {
	e, ok := c.topics[t]
	if !ok {
		return nil, ErrorCodeNotFoundEvent.Errorf("not found event topic:%s", t)
	}
	return e, nil
}

func decodeParams(args []abi.Argument, data []byte) (Params, error) {
	values, err := abi.Decode(abi.Types(args), data)
	if err != nil {
		return nil, err
	}
	ret := make(Params)
	for i, arg := range args {
		ret[ArgumentKey(arg.Name, i)] = values[i]
	}
	return ret, nil
}

// Pack returns the call data of the method, the selector followed by the
// encoded inputs.
func (c *Contract) Pack(method string, params Params) ([]byte, error) {
	f, err := c.Method(method)
	if err != nil {
		return nil, err
	}
	values, err := ValuesOf(f.Inputs(), params)
	if err != nil {
		return nil, err
	}
	b, err := abi.Encode(f.InputTypes(), values)
	if err != nil {
		return nil, err
	}
	s := f.Selector()
	return append(s.Bytes(), b...), nil
}

// PackConstructor returns the encoded constructor inputs which follow the
// creation code.
func (c *Contract) PackConstructor(params Params) ([]byte, error) {
	var args []abi.Argument
	if c.constructor != nil {
		args = c.constructor.Inputs()
	}
	values, err := ValuesOf(args, params)
	if err != nil {
		return nil, err
	}
	return abi.Encode(abi.Types(args), values)
}

// Unpack decodes the return data of the method.
func (c *Contract) Unpack(method string, data []byte) (Params, error) {
	f, err := c.Method(method)
	if err != nil {
		return nil, err
	}
	return decodeParams(f.Outputs(), data)
}

// UnpackInput finds the method by the selector of the call data and
// decodes its inputs.
func (c *Contract) UnpackInput(data []byte) (*abi.Function, Params, error) {
	s, err := abi.BytesToSelector(data)
	if err != nil {
		return nil, nil, err
	}
	f, err := c.MethodBySelector(s)
	if err != nil {
		return nil, nil, err
	}
	params, err := decodeParams(f.Inputs(), data[abi.SelectorLength:])
	if err != nil {
		return nil, nil, err
	}
	return f, params, nil
}

// indexedValueType reports whether t is stored in a topic as is. Others
// are stored as their hash.
func indexedValueType(t abi.Type) bool {
	return !t.IsDynamic() && !t.IsArray()
}

func decodeEvent(e *abi.Event, topics []abi.Topic, data []byte) (Params, error) {
	var indexed, others []abi.Argument
	var keys []string
	for i, in := range e.Inputs() {
		arg := abi.Argument{Name: in.Name, Type: in.Type}
		if in.Indexed {
			indexed = append(indexed, arg)
			keys = append(keys, ArgumentKey(in.Name, i))
		} else {
			others = append(others, arg)
		}
	}
	if len(topics) != len(indexed) {
		return nil, ErrorCodeInvalidParam.Errorf("mismatch topics event:%s expected:%d actual:%d",
			e.Signature(), len(indexed), len(topics))
	}
	ret := make(Params)
	for i, arg := range indexed {
		if !indexedValueType(arg.Type) {
			ret[keys[i]] = topics[i]
			continue
		}
		v, err := abi.DecodeOne(arg.Type, topics[i].Bytes())
		if err != nil {
			return nil, err
		}
		ret[keys[i]] = v
	}
	values, err := abi.Decode(abi.Types(others), data)
	if err != nil {
		return nil, err
	}
	oi := 0
	for i, in := range e.Inputs() {
		if !in.Indexed {
			ret[ArgumentKey(in.Name, i)] = values[oi]
			oi++
		}
	}
	return ret, nil
}

// DecodeEvent finds the event by the first topic and decodes the log.
func (c *Contract) DecodeEvent(topics []abi.Topic, data []byte) (*abi.Event, Params, error) {
	if len(topics) == 0 {
		return nil, nil, ErrorCodeInvalidParam.Errorf("no topics")
	}
	e, err := c.EventByTopic(topics[0])
	if err != nil {
		return nil, nil, err
	}
	params, err := decodeEvent(e, topics[1:], data)
	if err != nil {
		return nil, nil, err
	}
	return e, params, nil
}

// DecodeAnonymousEvent decodes a log of the anonymous event whose topics
// don't carry the event topic.
func (c *Contract) DecodeAnonymousEvent(name string, topics []abi.Topic, data []byte) (Params, error) {
	e, err := c.Event(name)
	if err != nil {
		return nil, err
	}
	if !e.IsAnonymous() {
		return nil, ErrorCodeInvalidParam.Errorf("not anonymous event:%s", e.Signature())
	}
	return decodeEvent(e, topics, data)
}

// EventTopics returns the topics to filter logs of the event. A missing
// param leaves its topic as a wildcard, nil.
func (c *Contract) EventTopics(name string, params Params) ([]*abi.Topic, error) {
	e, err := c.Event(name)
	if err != nil {
		return nil, err
	}
	var ret []*abi.Topic
	if !e.IsAnonymous() {
		t := e.Topic()
		ret = append(ret, &t)
	}
	for i, in := range e.Inputs() {
		if !in.Indexed {
			continue
		}
		k := ArgumentKey(in.Name, i)
		p, ok := params[k]
		if !ok || p == nil {
			ret = append(ret, nil)
			continue
		}
		t, err := topicOf(in.Type, p)
		if err != nil {
			return nil, ErrorCodeInvalidParam.Wrapf(err, "invalid param name:%s err:%s", k, err.Error())
		}
		ret = append(ret, &t)
	}
	return ret, nil
}

func topicOf(t abi.Type, p interface{}) (abi.Topic, error) {
	v, err := ValueOf(t, p)
	if err != nil {
		return abi.Topic{}, err
	}
	switch {
	case indexedValueType(t):
		b, err := abi.Encode([]abi.Type{t}, []interface{}{v})
		if err != nil {
			return abi.Topic{}, err
		}
		return common.BytesToHash(b), nil
	case t.Tag() == abi.TBytes:
		return abi.Keccak256Hash(v.([]byte)), nil
	case t.Tag() == abi.TString:
		return abi.Keccak256Hash([]byte(v.(string))), nil
	default:
		return abi.Topic{}, ErrorCodeInvalidParam.Errorf("not supported indexed type %s", t)
	}
}

// MatchSelector checks whether data calls the method.
func (c *Contract) MatchSelector(method string, data []byte) error {
	f, err := c.Method(method)
	if err != nil {
		return err
	}
	s := f.Selector()
	if len(data) < abi.SelectorLength || !bytes.Equal(s.Bytes(), data[:abi.SelectorLength]) {
		return ErrorCodeMismatchSelector.Errorf("mismatch selector expected:%s", s)
	}
	return nil
}
