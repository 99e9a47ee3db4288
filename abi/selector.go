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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/log"
	"golang.org/x/crypto/sha3"
)

const (
	SelectorLength           = 4
	DefaultSelectorCacheSize = 1024
)

type Selector [SelectorLength]byte

func (s Selector) Bytes() []byte {
	return s[:]
}

func (s Selector) Hex() string {
	return hexutil.Encode(s[:])
}

func (s Selector) String() string {
	return s.Hex()
}

func (s Selector) MarshalText() ([]byte, error) {
	return hexutil.Bytes(s[:]).MarshalText()
}

func (s *Selector) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Selector", input, s[:])
}

func BytesToSelector(b []byte) (Selector, error) {
	var s Selector
	if len(b) < SelectorLength {
		return s, ErrorCodeBufferTooShort.Errorf("selector requires %d bytes, len:%d", SelectorLength, len(b))
	}
	copy(s[:], b[:SelectorLength])
	return s, nil
}

type Topic = common.Hash

// Keccak256Hash returns Keccak-256 of b. Indexed dynamic values of events
// are stored as this hash.
func Keccak256Hash(b []byte) Topic {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return common.BytesToHash(h.Sum(nil))
}

// SelectorComputer hashes signatures with Keccak-256, keeping recent
// digests in a bounded cache. It is safe for concurrent use.
type SelectorComputer struct {
	c *lru.Cache
}

func NewSelectorComputer(size int) (*SelectorComputer, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &SelectorComputer{c: c}, nil
}

func (sc *SelectorComputer) digest(sig string) Topic {
	if v, ok := sc.c.Get(sig); ok {
		return v.(Topic)
	}
	d := Keccak256Hash([]byte(sig))
	sc.c.Add(sig, d)
	return d
}

func (sc *SelectorComputer) FunctionSelector(sig string) Selector {
	var s Selector
	d := sc.digest(sig)
	copy(s[:], d[:SelectorLength])
	return s
}

func (sc *SelectorComputer) EventTopic(sig string) Topic {
	return sc.digest(sig)
}

var (
	defaultSelectorComputer *SelectorComputer
)

func init() {
	var err error
	if defaultSelectorComputer, err = NewSelectorComputer(DefaultSelectorCacheSize); err != nil {
		log.Panicf("fail to NewSelectorComputer err:%v", err)
	}
}

// FunctionSelector returns the first 4 bytes of Keccak-256 of sig.
func FunctionSelector(sig string) Selector {
	return defaultSelectorComputer.FunctionSelector(sig)
}

// EventTopic returns Keccak-256 of sig.
func EventTopic(sig string) Topic {
	return defaultSelectorComputer.EventTopic(sig)
}

// MethodID returns the selector as 8 hex digits without prefix.
func MethodID(sig string) string {
	return FunctionSelector(sig).Hex()[2:]
}
