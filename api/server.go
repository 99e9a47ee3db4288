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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/contract"
	"github.com/icon-project/btp-abi/database"
	"github.com/icon-project/btp-abi/registry"
)

const (
	ParamName          = "name"
	ParamMethod        = "method"
	ParamSelector      = "selector"
	GroupUrlApi        = "/api"
	GroupUrlWs         = "/ws"
	UrlSelector        = "/selector"
	UrlEncode          = "/encode"
	UrlDecode          = "/decode"
	UrlContracts       = "/contracts"
	UrlPack            = "/pack"
	UrlUnpack          = "/unpack"
	UrlEvent           = "/event"
	UrlOpenAPI         = "/openapi"
	UrlSignatures      = "/signatures"
	WsHandshakeTimeout = time.Second * 3
)

func Logger(l log.Logger) log.Logger {
	return l.WithFields(log.Fields{log.FieldKeyModule: "api"})
}

type Server struct {
	e    *echo.Echo
	addr string
	r    *registry.Registry
	once sync.Once
	u    websocket.Upgrader
	lv   log.Level
	l    log.Logger
}

func NewServer(addr string, r *registry.Registry, transportLogLevel log.Level, l log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HttpErrorHandler
	return &Server{
		e:    e,
		addr: addr,
		r:    r,
		lv:   EnsureTransportLogLevel(transportLogLevel),
		l:    Logger(l),
	}
}

func (s *Server) init() {
	s.once.Do(func() {
		// CORS middleware
		s.e.Use(
			middleware.CORSWithConfig(middleware.CORSConfig{
				MaxAge: 3600,
			}),
			middleware.Recover())
		s.RegisterAPIHandler(s.e.Group(GroupUrlApi))
		s.RegisterWsHandler(s.e.Group(GroupUrlWs))
	})
}

// Handler returns the http.Handler serving every route of the server.
func (s *Server) Handler() http.Handler {
	s.init()
	return s.e
}

func (s *Server) Start() error {
	s.l.Infoln("starting the server")
	s.init()
	return s.e.Start(s.addr)
}

type SelectorRequest struct {
	Signature string `json:"signature" validate:"required"`
}

type SelectorResponse struct {
	Signature string       `json:"signature"`
	Selector  abi.Selector `json:"selector"`
	Topic     abi.Topic    `json:"topic"`
}

type EncodeRequest struct {
	Types  []string      `json:"types" validate:"dive,required"`
	Values []interface{} `json:"values"`
}

type EncodeResponse struct {
	Data contract.Bytes `json:"data"`
}

type DecodeRequest struct {
	Types []string       `json:"types,omitempty" validate:"dive,required"`
	Data  contract.Bytes `json:"data"`
}

type DecodeResponse struct {
	Values []interface{} `json:"values"`
}

type RegisterContractRequest struct {
	ABI json.RawMessage `json:"abi" validate:"required"`
}

type EntryInfo struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
	Constant  bool   `json:"constant,omitempty"`
	Payable   bool   `json:"payable,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

type ContractInfo struct {
	Name    string          `json:"name"`
	Methods []EntryInfo     `json:"methods"`
	Events  []EntryInfo     `json:"events"`
	ABI     json.RawMessage `json:"abi,omitempty"`
}

type PackRequest struct {
	Params contract.Params `json:"params"`
}

type PackResponse struct {
	Data contract.Bytes `json:"data"`
}

// UnpackRequest decodes return data of the method, or its call data if
// Input is set.
type UnpackRequest struct {
	Data  contract.Bytes `json:"data"`
	Input bool           `json:"input,omitempty"`
}

type UnpackResponse struct {
	Params contract.Params `json:"params"`
}

// EventRequest is a log to decode. Event names the anonymous event whose
// topics don't carry the event topic.
type EventRequest struct {
	Event  string         `json:"event,omitempty"`
	Topics []abi.Topic    `json:"topics" validate:"required"`
	Data   contract.Bytes `json:"data"`
}

type EventResponse struct {
	Signature string          `json:"signature"`
	Params    contract.Params `json:"params"`
}

type RegisterSignatureRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=function event"`
	Signature string `json:"signature" validate:"required"`
}

type SignaturePageRequest struct {
	Kind string `json:"kind" query:"kind" validate:"omitempty,oneof=function event"`
	database.Pageable
}

// DecodeSessionRequest opens a decode session. Every message of the
// session is a DecodeRequest whose Types default to the session's.
type DecodeSessionRequest struct {
	Types []string `json:"types" validate:"dive,required"`
}

func ContractInfoOf(name string, c *contract.Contract) *ContractInfo {
	ci := &ContractInfo{
		Name:    name,
		Methods: make([]EntryInfo, 0),
		Events:  make([]EntryInfo, 0),
	}
	for _, f := range c.Methods() {
		ci.Methods = append(ci.Methods, EntryInfo{
			Name:      f.Name(),
			Signature: f.Signature(),
			Selector:  f.Selector().Hex(),
			Constant:  f.IsConstant(),
			Payable:   f.IsPayable(),
		})
	}
	for _, e := range c.Events() {
		ci.Events = append(ci.Events, EntryInfo{
			Name:      e.Name(),
			Signature: e.Signature(),
			Selector:  e.Topic().Hex(),
			Anonymous: e.IsAnonymous(),
		})
	}
	return ci
}

func eventArguments(e *abi.Event) []abi.Argument {
	l := make([]abi.Argument, len(e.Inputs()))
	for i, in := range e.Inputs() {
		l[i] = abi.Argument{Name: in.Name, Type: in.Type}
	}
	return l
}

func (s *Server) bind(c echo.Context, v interface{}) error {
	if err := BindQueryParamsAndUnmarshalBody(c, v); err != nil {
		s.l.Debugf("fail to BindQueryParamsAndUnmarshalBody err:%+v", err)
		return echo.ErrBadRequest
	}
	if err := c.Validate(v); err != nil {
		s.l.Debugf("fail to Validate err:%+v", err)
		return err
	}
	return nil
}

func pathParam(c echo.Context, name string) string {
	p := c.Param(name)
	if v, err := url.PathUnescape(p); err == nil {
		return v
	}
	return p
}

func (s *Server) RegisterAPIHandler(g *echo.Group) {
	g.Use(middleware.BodyDump(func(c echo.Context, reqBody []byte, resBody []byte) {
		s.l.Debugf("url=%s", c.Request().RequestURI)
		s.l.Logf(s.lv, "request=%s", reqBody)
		s.l.Logf(s.lv, "response=%s", resBody)
	}))
	g.POST(UrlSelector, func(c echo.Context) error {
		req := &SelectorRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		name, types, err := abi.ParseSignature(req.Signature)
		if err != nil {
			s.l.Debugf("fail to ParseSignature err:%+v", err)
			return err
		}
		sig := abi.Signature(name, types)
		return c.JSON(http.StatusOK, &SelectorResponse{
			Signature: sig,
			Selector:  abi.FunctionSelector(sig),
			Topic:     abi.EventTopic(sig),
		})
	})
	g.POST(UrlEncode, func(c echo.Context) error {
		req := &EncodeRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		types, err := abi.ParseTypes(req.Types)
		if err != nil {
			return err
		}
		b, err := contract.EncodeJSON(types, req.Values)
		if err != nil {
			s.l.Debugf("fail to EncodeJSON err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, &EncodeResponse{Data: b})
	})
	g.POST(UrlDecode, func(c echo.Context) error {
		req := &DecodeRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		values, err := s.decode(req.Types, req.Data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &DecodeResponse{Values: values})
	})

	g.GET(UrlContracts, func(c echo.Context) error {
		names, err := s.r.Names()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, names)
	})
	contractApi := g.Group(UrlContracts + "/:" + ParamName)
	contractApi.POST("", func(c echo.Context) error {
		req := &RegisterContractRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		name := pathParam(c, ParamName)
		ct, err := s.r.Register(name, req.ABI)
		if err != nil {
			s.l.Debugf("fail to Register name:%s err:%+v", name, err)
			return err
		}
		return c.JSON(http.StatusOK, ContractInfoOf(name, ct))
	})
	contractApi.GET("", func(c echo.Context) error {
		name := pathParam(c, ParamName)
		ct, err := s.r.Contract(name)
		if err != nil {
			return err
		}
		ca, err := s.r.ContractABI(name)
		if err != nil {
			return err
		}
		ci := ContractInfoOf(name, ct)
		ci.ABI = json.RawMessage(ca.ABI)
		return c.JSON(http.StatusOK, ci)
	})

	contractApi.GET(UrlOpenAPI, func(c echo.Context) error {
		ct, err := s.contract(c)
		if err != nil {
			return err
		}
		oas := NewContractOpenAPISpec(pathParam(c, ParamName), ct)
		return c.JSON(http.StatusOK, &oas)
	})
	contractApi.POST(UrlPack+"/:"+ParamMethod, func(c echo.Context) error {
		req := &PackRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ct, err := s.contract(c)
		if err != nil {
			return err
		}
		b, err := ct.Pack(pathParam(c, ParamMethod), req.Params)
		if err != nil {
			s.l.Debugf("fail to Pack err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, &PackResponse{Data: b})
	})
	contractApi.POST(UrlUnpack+"/:"+ParamMethod, func(c echo.Context) error {
		req := &UnpackRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ct, err := s.contract(c)
		if err != nil {
			return err
		}
		method := pathParam(c, ParamMethod)
		f, err := ct.Method(method)
		if err != nil {
			return err
		}
		var (
			args   = f.Outputs()
			params contract.Params
		)
		if req.Input {
			if err = ct.MatchSelector(method, req.Data); err != nil {
				return err
			}
			args = f.Inputs()
			_, params, err = ct.UnpackInput(req.Data)
		} else {
			params, err = ct.Unpack(method, req.Data)
		}
		if err != nil {
			s.l.Debugf("fail to Unpack err:%+v", err)
			return err
		}
		if params, err = contract.JSONParamsOf(args, params); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &UnpackResponse{Params: params})
	})
	contractApi.POST(UrlEvent, func(c echo.Context) error {
		req := &EventRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ct, err := s.contract(c)
		if err != nil {
			return err
		}
		var (
			e      *abi.Event
			params contract.Params
		)
		if len(req.Event) > 0 {
			if e, err = ct.Event(req.Event); err != nil {
				return err
			}
			params, err = ct.DecodeAnonymousEvent(req.Event, req.Topics, req.Data)
		} else {
			e, params, err = ct.DecodeEvent(req.Topics, req.Data)
		}
		if err != nil {
			s.l.Debugf("fail to DecodeEvent err:%+v", err)
			return err
		}
		if params, err = contract.JSONParamsOf(eventArguments(e), params); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &EventResponse{Signature: e.Signature(), Params: params})
	})

	g.GET(UrlSignatures, func(c echo.Context) error {
		req := &SignaturePageRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		p, err := s.r.Page(req.Kind, req.Pageable)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, p)
	})
	g.POST(UrlSignatures, func(c echo.Context) error {
		req := &RegisterSignatureRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		sig, err := s.r.RegisterSignature(req.Kind, req.Signature)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, sig)
	})
	g.GET(UrlSignatures+"/:"+ParamSelector, func(c echo.Context) error {
		l, err := s.r.Lookup(c.Param(ParamSelector))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
}

func (s *Server) contract(c echo.Context) (*contract.Contract, error) {
	return s.r.Contract(pathParam(c, ParamName))
}

func (s *Server) decode(types []string, data []byte) ([]interface{}, error) {
	l, err := abi.ParseTypes(types)
	if err != nil {
		return nil, err
	}
	values, err := contract.DecodeJSON(l, data)
	if err != nil {
		s.l.Debugf("fail to DecodeJSON err:%+v", err)
		return nil, err
	}
	return values, nil
}

func (s *Server) RegisterWsHandler(g *echo.Group) {
	g.GET(UrlDecode, func(c echo.Context) error {
		conn, err := s.wsConnect(c)
		if err != nil {
			return err
		}
		defer s.wsClose(conn)
		id := s.wsID(conn)
		req := &DecodeSessionRequest{}
		onSuccessHandshake := func() error {
			if err := c.Validate(req); err != nil {
				return err
			}
			_, err := abi.ParseTypes(req.Types)
			return err
		}
		if err = s.wsHandshake(conn, req, onSuccessHandshake); err != nil {
			s.l.Debugf("[%s]fail to wsHandshake err:%+v", id, err)
			return nil
		}
		err = s.wsReadLoop(context.Background(), conn, func(b []byte) error {
			var resp interface{}
			dr := &DecodeRequest{}
			if err := json.Unmarshal(b, dr); err != nil {
				resp = NewErrorResponse(errors.IllegalArgumentError.Wrapf(err, "invalid request err:%s", err.Error()))
			} else {
				types := req.Types
				if len(dr.Types) > 0 {
					types = dr.Types
				}
				if values, err := s.decode(types, dr.Data); err != nil {
					resp = NewErrorResponse(err)
				} else {
					resp = &DecodeResponse{Values: values}
				}
			}
			return s.wsWrite(conn, resp)
		})
		s.l.Debugf("[%s]decode session closed err:%+v", id, err)
		return nil
	})
}

func (s *Server) wsID(conn *websocket.Conn) string {
	return conn.RemoteAddr().String()
}

func (s *Server) wsConnect(c echo.Context) (*websocket.Conn, error) {
	conn, err := s.u.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.l.Debugf("fail to Upgrade err:%+v", err)
		return nil, err
	}
	s.l.Debugf("[%s]wsConnect", s.wsID(conn))
	return conn, nil
}

func (s *Server) wsHandshake(conn *websocket.Conn, req interface{}, onSuccess func() error) error {
	var err error
	id := s.wsID(conn)
	ctx, cancel := context.WithTimeout(context.Background(), WsHandshakeTimeout)
	defer func() {
		cancel()
		er := &ErrorResponse{
			Code: errors.Success,
		}
		if err != nil {
			er = NewErrorResponse(err)
		}
		if werr := s.wsWrite(conn, er); werr != nil {
			s.l.Debugf("[%s]fail to wsWrite err:%+v", id, werr)
		}
	}()
	if err = s.wsRead(ctx, conn, req); err != nil {
		s.l.Debugf("[%s]fail to wsRead err:%+v", id, err)
		return err
	}
	err = onSuccess()
	return err
}

func (s *Server) wsClose(conn *websocket.Conn) {
	s.l.Debugf("[%s]wsClose", s.wsID(conn))
	conn.Close()
}

func (s *Server) wsRead(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	id := s.wsID(conn)
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
				return errors.IllegalArgumentError.Wrapf(err, "invalid request err:%s", err.Error())
			}
			s.l.Logf(s.lv, "[%s]wsRead=%s", id, t)
			return nil
		default:
			s.l.Panicln("unreachable code")
			return nil
		}
	}
}

func (s *Server) wsWrite(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.l.Logf(s.lv, "[%s]wsWrite=%s", s.wsID(conn), b)
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) wsReadLoop(ctx context.Context, conn *websocket.Conn, cb func(b []byte) error) error {
	id := s.wsID(conn)
	ech := make(chan error, 1)
	go func() {
		defer func() {
			s.l.Debugf("[%s]wsReadLoop finish", id)
		}()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				ech <- err
				break
			}
			s.l.Logf(s.lv, "[%s]wsReadLoop=%s", id, b)
			if err = cb(b); err != nil {
				ech <- err
				break
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.l.Debugf("[%s]wsReadLoop context Done", id)
		return ctx.Err()
	case err := <-ech:
		s.l.Debugf("[%s]wsReadLoop err:%+v", id, err)
		return err
	}
}

func (s *Server) Stop() error {
	s.l.Infoln("shutting down the server")

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func BindQueryParamsAndUnmarshalBody(c echo.Context, v interface{}) error {
	if ContainsMapTypeInStructType(reflect.TypeOf(v)) {
		if err := UnmarshalQueryParams(c, v); err != nil {
			return err
		}
	} else {
		if err := (&echo.DefaultBinder{}).BindQueryParams(c, v); err != nil {
			return err
		}
	}
	return UnmarshalRequestBody(c, v)
}

func QueryParamsToMap(c echo.Context) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	for k, v := range c.QueryParams() {
		tm := m
		if start := strings.IndexByte(k, '['); start > 0 && k[len(k)-1] == ']' {
			l := []string{k[:start]}
			l = append(l, strings.Split(k[start+1:len(k)-1], "][")...)
			var (
				elem interface{}
				ok   = false
				last = len(l) - 1
			)
			for i, p := range l {
				if i < last {
					if elem, ok = tm[p]; !ok {
						cm := make(map[string]interface{})
						tm[p] = cm
						tm = cm
					} else if tm, ok = elem.(map[string]interface{}); ok {
						continue
					} else {
						return nil, errors.Errorf("fail cast k:%s i:%d p:%s", k, i, p)
					}
				} else {
					k = p
				}
			}
		}
		switch len(v) {
		case 0:
			tm[k] = nil
		case 1:
			tm[k] = v[0]
		default:
			tm[k] = v
		}
	}
	return m, nil
}

func ContainsMapTypeInStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Type.Kind() == reflect.Map {
				return true
			} else if t.Field(i).Type.Kind() == reflect.Struct {
				if ContainsMapTypeInStructType(t.Field(i).Type) {
					return true
				}
			}
		}
	}
	return false
}

func UnmarshalQueryParams(c echo.Context, v interface{}) error {
	m, err := QueryParamsToMap(c)
	if err != nil {
		return err
	}
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func UnmarshalRequestBody(c echo.Context, v interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return UnmarshalBody(c.Request().Body, v)
}

// UnmarshalBody keeps JSON numbers as json.Number so that integers beyond
// float64 precision survive.
func UnmarshalBody(b io.ReadCloser, v interface{}) error {
	defer b.Close()
	d := json.NewDecoder(b)
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}
