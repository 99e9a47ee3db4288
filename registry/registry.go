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

package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/contract"
	"github.com/icon-project/btp-abi/database"
)

const (
	KindFunction = "function"
	KindEvent    = "event"

	DefaultContractCacheSize = 64
)

const (
	ErrorCodeNotFoundContract errors.Code = errors.CodeGeneral + 300 + iota
	ErrorCodeInvalidSelector
	ErrorCodeInvalidKind
)

// Signature is a known signature text of a function selector or an event
// topic. A selector may have more than one text.
type Signature struct {
	database.Model
	Kind     string `json:"kind" gorm:"size:16;uniqueIndex:idx_signature"`
	Selector string `json:"selector" gorm:"size:66;index;uniqueIndex:idx_signature"`
	Text     string `json:"text" gorm:"size:1024;uniqueIndex:idx_signature"`
}

// ContractABI is ABI JSON registered by name.
type ContractABI struct {
	database.Model
	Name string `json:"name" gorm:"size:128;uniqueIndex"`
	ABI  string `json:"abi" gorm:"type:text"`
}

type Registry struct {
	db        *gorm.DB
	sigs      *database.DefaultRepository[Signature]
	contracts *database.DefaultRepository[ContractABI]
	cache     *lru.Cache
	l         log.Logger
}

func New(db *gorm.DB, l log.Logger) (*Registry, error) {
	sigs, err := database.NewDefaultRepository[Signature](db, "signature")
	if err != nil {
		return nil, errors.Wrapf(err, "fail to NewDefaultRepository[Signature] err:%s", err.Error())
	}
	contracts, err := database.NewDefaultRepository[ContractABI](db, "contract_abi")
	if err != nil {
		return nil, errors.Wrapf(err, "fail to NewDefaultRepository[ContractABI] err:%s", err.Error())
	}
	cache, err := lru.New(DefaultContractCacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		db:        db,
		sigs:      sigs,
		contracts: contracts,
		cache:     cache,
		l:         l.WithFields(log.Fields{log.FieldKeyModule: "registry"}),
	}, nil
}

func entrySignature(e abi.Entry) (Signature, bool) {
	switch v := e.(type) {
	case *abi.Function:
		return Signature{Kind: KindFunction, Selector: v.Selector().Hex(), Text: v.Signature()}, true
	case *abi.Event:
		return Signature{Kind: KindEvent, Selector: v.Topic().Hex(), Text: v.Signature()}, true
	default:
		return Signature{}, false
	}
}

func saveSignature(tx database.Repository[Signature], s *Signature) error {
	found, err := tx.FindOne(&Signature{Kind: s.Kind, Selector: s.Selector, Text: s.Text})
	if err != nil {
		return err
	}
	if found != nil {
		*s = *found
		return nil
	}
	return tx.Save(s)
}

// Register parses abiJSON and keeps it as name along with the signatures
// of its functions and events. Registering a name again replaces the ABI.
func (r *Registry) Register(name string, abiJSON []byte) (*contract.Contract, error) {
	c, err := contract.Parse(abiJSON)
	if err != nil {
		return nil, err
	}
	var sigs []*Signature
	for _, e := range c.Entries() {
		if s, ok := entrySignature(e); ok {
			sigs = append(sigs, &s)
		}
	}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		sigTx := r.sigs.WithDB(tx)
		for _, s := range sigs {
			if err := saveSignature(sigTx, s); err != nil {
				return errors.Wrapf(err, "fail to save signature text:%s err:%s", s.Text, err.Error())
			}
		}
		contractTx := r.contracts.WithDB(tx)
		ca, err := contractTx.FindOne(&ContractABI{Name: name})
		if err != nil {
			return err
		}
		if ca == nil {
			ca = &ContractABI{Name: name}
		}
		ca.ABI = string(abiJSON)
		return contractTx.Save(ca)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to save contract name:%s err:%s", name, err.Error())
	}
	r.cache.Add(name, c)
	r.l.Debugf("register contract name:%s signatures:%d", name, len(sigs))
	return c, nil
}

// RegisterSignature keeps a single signature text. The kind decides
// whether the selector or the topic is kept.
func (r *Registry) RegisterSignature(kind, text string) (*Signature, error) {
	name, types, err := abi.ParseSignature(text)
	if err != nil {
		return nil, err
	}
	s := &Signature{Kind: kind, Text: abi.Signature(name, types)}
	switch kind {
	case KindFunction:
		s.Selector = abi.FunctionSelector(s.Text).Hex()
	case KindEvent:
		s.Selector = abi.EventTopic(s.Text).Hex()
	default:
		return nil, ErrorCodeInvalidKind.Errorf("invalid kind:%s", kind)
	}
	err = r.sigs.Transaction(func(tx database.Repository[Signature]) error {
		return saveSignature(tx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Registry) Contract(name string) (*contract.Contract, error) {
	if v, ok := r.cache.Get(name); ok {
		return v.(*contract.Contract), nil
	}
	ca, err := r.ContractABI(name)
	if err != nil {
		return nil, err
	}
	c, err := contract.Parse([]byte(ca.ABI))
	if err != nil {
		return nil, err
	}
	r.cache.Add(name, c)
	return c, nil
}

func (r *Registry) ContractABI(name string) (*ContractABI, error) {
	ca, err := r.contracts.FindOne(&ContractABI{Name: name})
	if err != nil {
		return nil, err
	}
	if ca == nil {
		return nil, ErrorCodeNotFoundContract.Errorf("not found contract name:%s", name)
	}
	return ca, nil
}

func (r *Registry) Names() ([]string, error) {
	l, err := r.contracts.FindWithOrder("name", nil)
	if err != nil {
		return nil, err
	}
	ret := make([]string, len(l))
	for i, ca := range l {
		ret[i] = ca.Name
	}
	return ret, nil
}

// NormalizeSelector returns the lower case hex of a 4 bytes selector or a
// 32 bytes topic.
func NormalizeSelector(selector string) (string, error) {
	if !strings.HasPrefix(selector, "0x") && !strings.HasPrefix(selector, "0X") {
		selector = "0x" + selector
	}
	b, err := hexutil.Decode(strings.ToLower(selector))
	if err != nil {
		return "", ErrorCodeInvalidSelector.Wrapf(err, "invalid selector:%s err:%s", selector, err.Error())
	}
	if len(b) != abi.SelectorLength && len(b) != common.HashLength {
		return "", ErrorCodeInvalidSelector.Errorf("invalid selector length:%d", len(b))
	}
	return hexutil.Encode(b), nil
}

// Lookup returns the signatures known for the selector or topic. Texts
// sharing a selector are all returned.
func (r *Registry) Lookup(selector string) ([]Signature, error) {
	s, err := NormalizeSelector(selector)
	if err != nil {
		return nil, err
	}
	l, err := r.sigs.FindWithOrder("text", &Signature{Selector: s})
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = []Signature{}
	}
	return l, nil
}

var (
	sortableColumns = map[string]bool{"id": true, "kind": true, "selector": true, "text": true}
)

// sortable accepts "column [asc|desc]" terms joined by comma.
func sortable(sort string) bool {
	for _, term := range strings.Split(sort, ",") {
		fields := strings.Fields(term)
		if len(fields) == 0 || len(fields) > 2 || !sortableColumns[strings.ToLower(fields[0])] {
			return false
		}
		if len(fields) == 2 {
			if d := strings.ToLower(fields[1]); d != "asc" && d != "desc" {
				return false
			}
		}
	}
	return true
}

// Page lists signatures of kind, or of every kind if kind is empty.
func (r *Registry) Page(kind string, p database.Pageable) (*database.Page[Signature], error) {
	var query interface{}
	switch kind {
	case "":
	case KindFunction, KindEvent:
		query = &Signature{Kind: kind}
	default:
		return nil, ErrorCodeInvalidKind.Errorf("invalid kind:%s", kind)
	}
	if len(p.Sort) == 0 {
		p.Sort = "id"
	}
	if !sortable(p.Sort) {
		return nil, errors.IllegalArgumentError.Errorf("invalid sort:%s", p.Sort)
	}
	return r.sigs.Page(p, query)
}
