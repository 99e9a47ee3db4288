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
	"fmt"
	"net/http"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/contract"
)

const (
	openapi3Version     = "3.0.3"
	infoTitlePrefix     = "BTP ABI "
	infoTitleSuffix     = " - OpenAPI " + openapi3Version
	infoDefaultVersion  = "0.1.0"
	tagConstant         = "Constant"
	tagNonConstant      = "NonConstant"
	tagEvent            = "Event"
	schemaRefPrefix     = "#/components/schemas/"
	schemaErrorResponse = "ErrorResponse"
	schemaPackResponse  = "PackResponse"
	schemaUnpackRequest = "UnpackRequest"
	schemaEventRequest  = "EventRequest"
)

var (
	infoLicenseApache = &openapi3.License{
		Name: "Apache 2.0",
		URL:  "http://www.apache.org/licenses/LICENSE-2.0.html",
	}
	integerSchema = openapi3.NewOneOfSchema(
		openapi3.NewStringSchema().WithPattern("^(0x|\\-0x)(0|[1-9a-f][0-9a-f]*)$"),
		openapi3.NewStringSchema().WithPattern("^(|\\-)(0|[1-9][0-9]*)$"),
		openapi3.NewIntegerSchema(),
	)
	booleanSchema  = openapi3.NewBoolSchema()
	stringSchema   = openapi3.NewStringSchema()
	bytesSchema    = openapi3.NewStringSchema().WithPattern("^0x([0-9a-fA-F][0-9a-fA-F])*$")
	addressSchema  = openapi3.NewStringSchema().WithFormat(abi.TAddress.String()).WithPattern("^0x[0-9a-fA-F]{40}$")
	defaultSchemas = map[string]*openapi3.Schema{
		schemaErrorResponse: MustGenerateSchema(&ErrorResponse{}),
		schemaPackResponse:  MustGenerateSchema(&PackResponse{}),
		schemaUnpackRequest: MustGenerateSchema(&UnpackRequest{}),
		schemaEventRequest:  MustGenerateSchema(&EventRequest{}),
	}
	defaultTags = openapi3.Tags{
		NewTag(tagConstant, "Constant method"),
		NewTag(tagNonConstant, "Non-constant method"),
		NewTag(tagEvent, "Event"),
	}
)

func MustGenerateSchema(v interface{}) *openapi3.Schema {
	ref, err := openapi3gen.NewSchemaRefForValue(v, nil)
	if err != nil {
		log.Panicf("%+v", err)
	}
	return ref.Value
}

func DefaultSchemaRef(name string) *openapi3.SchemaRef {
	if s, ok := defaultSchemas[name]; ok {
		return openapi3.NewSchemaRef(schemaRefPrefix+name, s)
	}
	return nil
}

func NewSchemas() openapi3.Schemas {
	schemas := make(openapi3.Schemas)
	for k, s := range defaultSchemas {
		schemas[k] = s.NewRef()
	}
	return schemas
}

func NewTag(name, desc string) *openapi3.Tag {
	return &openapi3.Tag{
		Name:        name,
		Description: desc,
	}
}

// TypeToSchemaRef returns the schema of the JSON form of t. Elementary
// types are kept in schemas by their canonical name.
func TypeToSchemaRef(t abi.Type, schemas openapi3.Schemas) *openapi3.SchemaRef {
	if elem, ok := t.Elem(); ok {
		schema := openapi3.NewArraySchema()
		schema.Items = TypeToSchemaRef(elem, schemas)
		if size := t.ArraySize(); size.Kind == abi.StaticSize {
			schema = schema.WithMinItems(int64(size.Length)).WithMaxItems(int64(size.Length))
		}
		return schema.NewRef()
	}
	name := t.String()
	ref, ok := schemas[name]
	if !ok {
		var schema *openapi3.Schema
		switch t.Tag() {
		case abi.TUint, abi.TInt:
			schema = integerSchema
		case abi.TBool:
			schema = booleanSchema
		case abi.TString:
			schema = stringSchema
		case abi.TAddress:
			schema = addressSchema
		case abi.TFixedBytes:
			schema = openapi3.NewStringSchema().
				WithPattern(fmt.Sprintf("^0x[0-9a-fA-F]{%d}$", t.Size()*2))
		default:
			schema = bytesSchema
		}
		ref = schema.NewRef()
		schemas[name] = ref
	}
	return openapi3.NewSchemaRef(schemaRefPrefix+name, ref.Value)
}

func NewObjectSchema(args []abi.Argument, schemas openapi3.Schemas) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for i, arg := range args {
		k := contract.ArgumentKey(arg.Name, i)
		schema.WithPropertyRef(k, TypeToSchemaRef(arg.Type, schemas))
		schema.Required = append(schema.Required, k)
	}
	return schema
}

func NewSuccessResponse() *openapi3.Response {
	return openapi3.NewResponse().WithDescription("Successful operation")
}

func ResponsesWithResponse(m openapi3.Responses, status int, resp *openapi3.Response) openapi3.Responses {
	if m == nil {
		m = make(openapi3.Responses)
	}
	m[strconv.FormatInt(int64(status), 10)] = &openapi3.ResponseRef{
		Value: resp,
	}
	return m
}

func NewErrorResponses(m openapi3.Responses) openapi3.Responses {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound} {
		m = ResponsesWithResponse(m, status,
			openapi3.NewResponse().WithDescription(http.StatusText(status)).
				WithJSONSchemaRef(DefaultSchemaRef(schemaErrorResponse)))
	}
	return m
}

func NewOpenAPISpec(name string) openapi3.T {
	tags := make(openapi3.Tags, len(defaultTags))
	copy(tags, defaultTags)
	return openapi3.T{
		OpenAPI: openapi3Version,
		Info: &openapi3.Info{
			Title:   infoTitlePrefix + name + infoTitleSuffix,
			Version: infoDefaultVersion,
			License: infoLicenseApache,
		},
		Tags:  tags,
		Paths: make(openapi3.Paths),
		Components: &openapi3.Components{
			Schemas: NewSchemas(),
		},
	}
}

// methodKeys names each method by its name, or by its signature when
// the name is overloaded.
func methodKeys(c *contract.Contract) map[*abi.Function]string {
	count := make(map[string]int)
	for _, f := range c.Methods() {
		count[f.Name()]++
	}
	ret := make(map[*abi.Function]string)
	for _, f := range c.Methods() {
		if count[f.Name()] > 1 {
			ret[f] = f.Signature()
		} else {
			ret[f] = f.Name()
		}
	}
	return ret
}

// NewContractOpenAPISpec describes pack and unpack paths for every method
// of c and the event path registered as name.
func NewContractOpenAPISpec(name string, c *contract.Contract) openapi3.T {
	oas := NewOpenAPISpec(name)
	schemas := oas.Components.Schemas
	base := fmt.Sprintf("%s%s/%s", GroupUrlApi, UrlContracts, name)
	for f, key := range methodKeys(c) {
		tag := tagNonConstant
		if f.IsConstant() {
			tag = tagConstant
		}
		req := openapi3.NewObjectSchema().
			WithProperty("params", NewObjectSchema(f.Inputs(), schemas))
		oas.Paths[fmt.Sprintf("%s%s/%s", base, UrlPack, key)] = &openapi3.PathItem{
			Post: &openapi3.Operation{
				Tags:    []string{tag},
				Summary: "Pack call data of " + f.Signature(),
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithContent(
						openapi3.NewContentWithJSONSchema(req)),
				},
				Responses: NewErrorResponses(ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponse().WithJSONSchemaRef(DefaultSchemaRef(schemaPackResponse)))),
			},
		}
		resp := openapi3.NewObjectSchema().
			WithProperty("params", NewObjectSchema(f.Outputs(), schemas))
		oas.Paths[fmt.Sprintf("%s%s/%s", base, UrlUnpack, key)] = &openapi3.PathItem{
			Post: &openapi3.Operation{
				Tags:    []string{tag},
				Summary: "Unpack return data of " + f.Signature(),
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithContent(
						openapi3.NewContentWithJSONSchemaRef(DefaultSchemaRef(schemaUnpackRequest))),
				},
				Responses: NewErrorResponses(ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponse().WithJSONSchema(resp))),
			},
		}
	}
	if events := c.Events(); len(events) > 0 {
		var l []*openapi3.Schema
		for _, e := range events {
			l = append(l, openapi3.NewObjectSchema().
				WithProperty("signature", NewStringEnumSchema(e.Signature())).
				WithProperty("params", NewObjectSchema(eventArguments(e), schemas)))
		}
		oas.Paths[base+UrlEvent] = &openapi3.PathItem{
			Post: &openapi3.Operation{
				Tags:    []string{tagEvent},
				Summary: "Decode event log",
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithContent(
						openapi3.NewContentWithJSONSchemaRef(DefaultSchemaRef(schemaEventRequest))),
				},
				Responses: NewErrorResponses(ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponse().WithJSONSchema(openapi3.NewOneOfSchema(l...)))),
			},
		}
	}
	return oas
}

func NewStringEnumSchema(strs ...string) *openapi3.Schema {
	values := make([]interface{}, len(strs))
	for i := 0; i < len(strs); i++ {
		values[i] = strs[i]
	}
	return openapi3.NewStringSchema().WithEnum(values...)
}
