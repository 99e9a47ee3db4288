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
	"fmt"

	"github.com/icon-project/btp2/common/errors"
)

const (
	CodeABI errors.Code = errors.CodeGeneral + 100
)

const (
	ErrorCodeInvalidType errors.Code = CodeABI + iota
	ErrorCodeTypeMismatch
	ErrorCodeBufferTooShort
	ErrorCodeOffsetOutOfRange
	ErrorCodeLengthOverflow
	ErrorCodeNonAsciiSignature
	ErrorCodeMalformedValue
)

type TypeMismatchError interface {
	errors.ErrorCoder
	Index() int
	Path() string
}

type typeMismatchError struct {
	index int
	path  string
	cause error
}

func (e *typeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch index:%d path:%s err:%s", e.index, e.path, e.cause.Error())
}

func (e *typeMismatchError) ErrorCode() errors.Code {
	return ErrorCodeTypeMismatch
}

func (e *typeMismatchError) Unwrap() error {
	return e.cause
}

func (e *typeMismatchError) Index() int {
	return e.index
}

func (e *typeMismatchError) Path() string {
	return e.path
}

// mismatch is the cause of a TypeMismatchError before its position
// in the tuple is known.
type mismatch struct {
	path string
	msg  string
}

func (m *mismatch) Error() string {
	return m.msg
}

func mismatchf(format string, args ...interface{}) *mismatch {
	return &mismatch{msg: fmt.Sprintf(format, args...)}
}

func (m *mismatch) at(index int) *mismatch {
	return &mismatch{path: fmt.Sprintf("[%d]", index) + m.path, msg: m.msg}
}

func NewTypeMismatchError(index int, path string, cause error) TypeMismatchError {
	return &typeMismatchError{
		index: index,
		path:  path,
		cause: cause,
	}
}
