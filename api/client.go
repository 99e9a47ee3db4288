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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/websocket"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/btp-abi/contract"
	"github.com/icon-project/btp-abi/database"
	"github.com/icon-project/btp-abi/registry"
)

type Client struct {
	*http.Client
	baseUrl    string
	baseApiUrl string
	baseWsUrl  string
	lv         log.Level
	l          log.Logger
}

func NewClient(url string, transportLogLevel log.Level, l log.Logger) *Client {
	l = Logger(l)
	url = strings.TrimSuffix(url, "/")
	return &Client{
		Client:     NewHttpClient(transportLogLevel, l),
		baseUrl:    url,
		baseApiUrl: url + GroupUrlApi,
		baseWsUrl:  url + GroupUrlWs,
		lv:         EnsureTransportLogLevel(transportLogLevel),
		l:          l,
	}
}

func (c *Client) apiUrl(format string, args ...interface{}) string {
	return c.baseApiUrl + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, reqPtr, respPtr interface{}) (resp *http.Response, err error) {
	var reqBody io.Reader
	if reqPtr != nil {
		var b []byte
		if b, err = json.Marshal(reqPtr); err != nil {
			c.l.Debugf("fail to encode Request err:%+v", err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	if !strings.HasPrefix(url, c.baseApiUrl) {
		url = c.baseApiUrl + url
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		c.l.Debugf("fail to NewRequest err:%+v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.l.Debugf("url=%s", req.URL)
	if resp, err = c.Client.Do(req); err != nil {
		return
	}
	if resp.StatusCode/100 != 2 {
		er := &ErrorResponse{}
		if err = UnmarshalBody(resp.Body, er); err != nil {
			c.l.Debugf("fail to decode ErrorResponse err:%+v", err)
			err = errors.Errorf("server response not success, StatusCode:%d",
				resp.StatusCode)
			return
		}
		err = er
		return
	}
	if respPtr != nil {
		if err = UnmarshalBody(resp.Body, respPtr); err != nil {
			c.l.Debugf("fail to decode resp err:%+v", err)
			return
		}
	} else {
		resp.Body.Close()
	}
	return
}

func (c *Client) Selector(signature string) (*SelectorResponse, error) {
	r := &SelectorResponse{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlSelector), &SelectorRequest{Signature: signature}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Encode(types []string, values []interface{}) ([]byte, error) {
	r := &EncodeResponse{}
	req := &EncodeRequest{Types: types, Values: values}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlEncode), req, r); err != nil {
		return nil, err
	}
	return r.Data, nil
}

func (c *Client) Decode(types []string, data []byte) ([]interface{}, error) {
	r := &DecodeResponse{}
	req := &DecodeRequest{Types: types, Data: data}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlDecode), req, r); err != nil {
		return nil, err
	}
	return r.Values, nil
}

func (c *Client) Contracts() ([]string, error) {
	var r []string
	if _, err := c.do(http.MethodGet, c.apiUrl(UrlContracts), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) contractUrl(name string, suffix ...string) string {
	return c.apiUrl("%s/%s%s", UrlContracts, url.PathEscape(name), strings.Join(suffix, ""))
}

func (c *Client) RegisterContract(name string, abiJSON []byte) (*ContractInfo, error) {
	r := &ContractInfo{}
	req := &RegisterContractRequest{ABI: abiJSON}
	if _, err := c.do(http.MethodPost, c.contractUrl(name), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Contract(name string) (*ContractInfo, error) {
	r := &ContractInfo{}
	if _, err := c.do(http.MethodGet, c.contractUrl(name), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) OpenAPISpec(name string) (*openapi3.T, error) {
	r := &openapi3.T{}
	if _, err := c.do(http.MethodGet, c.contractUrl(name, UrlOpenAPI), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Pack(name, method string, params contract.Params) ([]byte, error) {
	r := &PackResponse{}
	req := &PackRequest{Params: params}
	if _, err := c.do(http.MethodPost, c.contractUrl(name, UrlPack, "/", url.PathEscape(method)), req, r); err != nil {
		return nil, err
	}
	return r.Data, nil
}

func (c *Client) unpack(name, method string, req *UnpackRequest) (contract.Params, error) {
	r := &UnpackResponse{}
	if _, err := c.do(http.MethodPost, c.contractUrl(name, UrlUnpack, "/", url.PathEscape(method)), req, r); err != nil {
		return nil, err
	}
	return r.Params, nil
}

// Unpack decodes the return data of the method.
func (c *Client) Unpack(name, method string, data []byte) (contract.Params, error) {
	return c.unpack(name, method, &UnpackRequest{Data: data})
}

// UnpackInput decodes the call data of the method.
func (c *Client) UnpackInput(name, method string, data []byte) (contract.Params, error) {
	return c.unpack(name, method, &UnpackRequest{Data: data, Input: true})
}

func (c *Client) DecodeEvent(name string, req *EventRequest) (*EventResponse, error) {
	r := &EventResponse{}
	if _, err := c.do(http.MethodPost, c.contractUrl(name, UrlEvent), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Lookup(selector string) ([]registry.Signature, error) {
	var r []registry.Signature
	if _, err := c.do(http.MethodGet, c.apiUrl("%s/%s", UrlSignatures, url.PathEscape(selector)), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) RegisterSignature(kind, signature string) (*registry.Signature, error) {
	r := &registry.Signature{}
	req := &RegisterSignatureRequest{Kind: kind, Signature: signature}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlSignatures), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Signatures(kind string, p database.Pageable) (*database.Page[registry.Signature], error) {
	q := url.Values{}
	if len(kind) > 0 {
		q.Set("kind", kind)
	}
	q.Set("page", strconv.FormatUint(uint64(p.Page), 10))
	q.Set("size", strconv.FormatUint(uint64(p.Size), 10))
	if len(p.Sort) > 0 {
		q.Set("sort", p.Sort)
	}
	r := &database.Page[registry.Signature]{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s?%s", UrlSignatures, q.Encode()), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) wsUrl(format string, args ...interface{}) string {
	return c.baseWsUrl + fmt.Sprintf(format, args...)
}

func (c *Client) wsID(conn *websocket.Conn) string {
	return conn.LocalAddr().String()
}

func (c *Client) wsConnect(ctx context.Context, url string) (*websocket.Conn, error) {
	url = strings.Replace(url, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if err == websocket.ErrBadHandshake {
			er := &ErrorResponse{}
			if err = UnmarshalBody(resp.Body, er); err != nil {
				err = errors.Errorf("server response not success, StatusCode:%d",
					resp.StatusCode)
			} else {
				err = er
			}
		}
		c.l.Debugf("fail to Dial url:%s err:%+v", url, err)
		return nil, err
	}
	id := c.wsID(conn)
	pingHandler := conn.PingHandler()
	conn.SetPingHandler(func(appData string) error {
		c.l.Logf(c.lv, "[%s]wsPing=%s", id, appData)
		return pingHandler(appData)
	})
	conn.SetPongHandler(func(appData string) error {
		c.l.Logf(c.lv, "[%s]unexpected wsPong %s", id, appData)
		return nil
	})
	c.l.Debugf("[%s]wsConnect", id)
	return conn, nil
}

func (c *Client) wsHandshake(ctx context.Context, conn *websocket.Conn, req interface{}) error {
	var err error
	id := c.wsID(conn)
	if err = c.wsWrite(conn, req); err != nil {
		c.l.Debugf("[%s]fail to wsWrite err:%+v", id, err)
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, WsHandshakeTimeout)
	defer cancel()
	er := &ErrorResponse{}
	if err = c.wsRead(tctx, conn, er); err != nil {
		c.l.Debugf("[%s]fail to wsRead err:%+v", id, err)
		return err
	}
	if !errors.Success.Equals(er) {
		err = er
		return err
	}
	return nil
}

func (c *Client) wsClose(conn *websocket.Conn) {
	c.l.Debugf("[%s]wsClose", c.wsID(conn))
	conn.Close()
}

func (c *Client) wsRead(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	id := c.wsID(conn)
	ch := make(chan interface{}, 1)
	go func() {
		_, b, err := conn.ReadMessage()
		if err != nil {
			ch <- err
		} else {
			ch <- b
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case inf := <-ch:
		switch t := inf.(type) {
		case error:
			return t
		case []byte:
			if err := json.Unmarshal(t, v); err != nil {
				return err
			}
			c.l.Logf(c.lv, "[%s]wsRead=%s", id, t)
			return nil
		default:
			c.l.Panicln("unreachable code")
			return nil
		}
	}
}

func (c *Client) wsWrite(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.l.Logf(c.lv, "[%s]wsWrite=%s", c.wsID(conn), b)
	return conn.WriteMessage(websocket.TextMessage, b)
}

// DecodeSession decodes data over a websocket connection, one request
// at a time.
type DecodeSession struct {
	c    *Client
	ctx  context.Context
	conn *websocket.Conn
	mtx  sync.Mutex
}

// decodeReply is either a DecodeResponse or an ErrorResponse.
type decodeReply struct {
	Values  []interface{}   `json:"values"`
	Code    errors.Code     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) DecodeSession(ctx context.Context, types []string) (*DecodeSession, error) {
	conn, err := c.wsConnect(ctx, c.wsUrl(UrlDecode))
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []string{}
	}
	if err = c.wsHandshake(ctx, conn, &DecodeSessionRequest{Types: types}); err != nil {
		c.wsClose(conn)
		return nil, err
	}
	return &DecodeSession{c: c, ctx: ctx, conn: conn}, nil
}

// Decode decodes data with the types of the session.
func (s *DecodeSession) Decode(data []byte) ([]interface{}, error) {
	return s.DecodeWith(nil, data)
}

// DecodeWith decodes data with types instead of the types of the session.
func (s *DecodeSession) DecodeWith(types []string, data []byte) ([]interface{}, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if err := s.c.wsWrite(s.conn, &DecodeRequest{Types: types, Data: data}); err != nil {
		return nil, err
	}
	r := &decodeReply{}
	if err := s.c.wsRead(s.ctx, s.conn, r); err != nil {
		return nil, err
	}
	if r.Values == nil && len(r.Message) > 0 {
		return nil, &ErrorResponse{Code: r.Code, Message: r.Message, Data: r.Data}
	}
	return r.Values, nil
}

func (s *DecodeSession) Close() {
	s.c.wsClose(s.conn)
}
