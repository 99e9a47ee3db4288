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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/icon-project/btp2/common/errors"
	"github.com/labstack/echo/v4"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/contract"
	"github.com/icon-project/btp-abi/registry"
)

type ErrorResponse struct {
	Code    errors.Code     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("code:%d, message:%s", e.Code, e.Message)
}

func (e *ErrorResponse) ErrorCode() errors.Code {
	return e.Code
}

func (e *ErrorResponse) MarshalData(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.Data = b
	return nil
}

func (e *ErrorResponse) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// TypeMismatchData locates the value which doesn't fit its type.
type TypeMismatchData struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
}

func NewErrorResponse(err error) *ErrorResponse {
	er := &ErrorResponse{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	}
	if tme, ok := err.(abi.TypeMismatchError); ok {
		_ = er.MarshalData(&TypeMismatchData{
			Index: tme.Index(),
			Path:  tme.Path(),
		})
	}
	return er
}

var (
	statusByCode = map[errors.Code]int{
		errors.IllegalArgumentError:        http.StatusBadRequest,
		contract.ErrorCodeNotFoundMethod:   http.StatusNotFound,
		contract.ErrorCodeNotFoundEvent:    http.StatusNotFound,
		registry.ErrorCodeNotFoundContract: http.StatusNotFound,
		registry.ErrorCodeInvalidSelector:  http.StatusBadRequest,
		registry.ErrorCodeInvalidKind:      http.StatusBadRequest,
		contract.ErrorCodeMismatchSelector: http.StatusBadRequest,
		contract.ErrorCodeAmbiguousName:    http.StatusBadRequest,
		contract.ErrorCodeInvalidParam:     http.StatusBadRequest,
		contract.ErrorCodeInvalidSpec:      http.StatusBadRequest,
		abi.ErrorCodeInvalidType:           http.StatusBadRequest,
		abi.ErrorCodeTypeMismatch:          http.StatusBadRequest,
		abi.ErrorCodeBufferTooShort:        http.StatusBadRequest,
		abi.ErrorCodeOffsetOutOfRange:      http.StatusBadRequest,
		abi.ErrorCodeLengthOverflow:        http.StatusBadRequest,
		abi.ErrorCodeNonAsciiSignature:     http.StatusBadRequest,
		abi.ErrorCodeMalformedValue:        http.StatusBadRequest,
	}
)

// StatusOf returns the http status for err, 500 for errors without a
// known code.
func StatusOf(err error) int {
	if s, ok := statusByCode[errors.CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func HttpErrorHandler(err error, c echo.Context) {
	code := StatusOf(err)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if e, ok := he.Message.(error); ok {
			err = e
		} else {
			err = errors.Errorf("%v", he.Message)
		}
	}
	er := NewErrorResponse(err)
	if !c.Response().Committed {
		if err = c.JSON(code, er); err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
