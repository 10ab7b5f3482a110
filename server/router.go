// SPDX-License-Identifier: ice License 1.0

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-reflect"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/identity"
	"github.com/ice-blockchain/authenticator/log"
)

// RootHandler binds and validates REQ, authenticates the caller and runs handleRequest with the user in its context.
func RootHandler[REQ, RESP any](handleRequest func(context.Context, *Request[REQ, RESP]) (*Response[RESP], *Response[ErrorResponse])) func(*gin.Context) {
	return func(ginCtx *gin.Context) {
		s := ginCtx.MustGet(srvGinCtxKey).(*srv) //nolint:forcetypeassert,errcheck // We know for sure.
		ctx, cancel := context.WithTimeout(ginCtx.Request.Context(), s.cfg.DefaultEndpointTimeout)
		defer cancel()
		req := new(Request[REQ, RESP]).init(ginCtx)
		if err := req.processRequest(); err != nil {
			log.Error(errors.Wrap(err.Data.InternalErr(), "endpoint processing failed"), "request", fmt.Sprintf("%[1]T", req.Data), "response", err.Data)
			ginCtx.JSON(err.Code, err.Data)

			return
		}
		if err := req.authorize(ctx, s.provider); err != nil {
			log.Error(errors.Wrap(err.Data.InternalErr(), "endpoint authentication failed"), "request", fmt.Sprintf("%[1]T", req.Data), "response", err.Data)
			ginCtx.JSON(err.Code, err.Data)

			return
		}
		if req.AuthenticatedUser != nil {
			ctx = identity.WithUser(ctx, req.AuthenticatedUser)
		}
		success, failure := handleRequest(ctx, req)
		if failure != nil {
			log.Error(errors.Wrap(failure.Data.InternalErr(), "endpoint failed"), "request", fmt.Sprintf("%[1]T", req.Data), "response", failure.Data)
			ginCtx.JSON(req.processErrorResponse(ctx, failure))

			return
		}
		for k, v := range success.Headers {
			ginCtx.Header(k, v)
		}
		if success.Data != nil {
			ginCtx.JSON(success.Code, success.Data)
		} else {
			ginCtx.Status(success.Code)
		}
	}
}

func (req *Request[REQ, RESP]) init(ginCtx *gin.Context) *Request[REQ, RESP] {
	req.Data = new(REQ)
	req.ClientIP = net.ParseIP(ginCtx.ClientIP())
	req.ginCtx = ginCtx

	return req
}

func (req *Request[REQ, RESP]) processTags() {
	elem := reflect.TypeOf(req.Data).Elem()
	if elem.Kind() != reflect.Struct {
		log.Panic("request data's have to be structs")
	}
	const enabled = "true"
	fieldCount := elem.NumField()
	req.requiredFields = make([]string, 0, fieldCount)
	req.bindings = make(map[requestBinding]struct{}, 4) //nolint:mnd,gomnd // They're 4 possible values.
	for i := range fieldCount {
		tag := elem.Field(i).Tag
		if tag.Get("required") == enabled {
			req.requiredFields = append(req.requiredFields, elem.Field(i).Name)
		}
		if tag.Get("allowUnauthorized") == enabled {
			req.allowUnauthorized = true
		}
		if jsonTag := tag.Get("json"); jsonTag != "" && jsonTag != "-" {
			req.bindings[json] = struct{}{}
		}
		if tag.Get("uri") != "" {
			req.bindings[uri] = struct{}{}
		}
		if tag.Get("header") != "" {
			req.bindings[header] = struct{}{}
		}
		if tag.Get("form") != "" {
			req.bindings[query] = struct{}{}
		}
	}
}

func (req *Request[REQ, RESP]) processRequest() *Response[ErrorResponse] {
	req.processTags()
	var errs []error
	for b := range req.bindings {
		switch b {
		case json:
			if req.ginCtx.Request.ContentLength != 0 {
				errs = append(errs, req.ginCtx.ShouldBindJSON(req.Data))
			}
		case uri:
			errs = append(errs, req.ginCtx.ShouldBindUri(req.Data))
		case query:
			errs = append(errs, req.ginCtx.ShouldBindQuery(req.Data))
		case header:
			errs = append(errs, req.ginCtx.ShouldBindHeader(req.Data))
		}
	}
	if err := multierror.Append(nil, errs...).ErrorOrNil(); err != nil {
		return UnprocessableEntity(errors.Wrapf(err, "binding failed"), "STRUCTURE_VALIDATION_FAILED")
	}

	return req.validate()
}

func (req *Request[REQ, RESP]) validate() *Response[ErrorResponse] {
	if len(req.requiredFields) == 0 {
		return nil
	}
	value := reflect.ValueOf(req.Data).Elem()
	missing := make([]string, 0, len(req.requiredFields))
	for _, field := range req.requiredFields {
		if value.FieldByName(field).IsZero() {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return UnprocessableEntity(errors.Errorf("properties `%v` are required", strings.Join(missing, ",")), "MISSING_PROPERTIES")
}

func (req *Request[REQ, RESP]) authorize(ctx context.Context, provider identity.Provider) *Response[ErrorResponse] {
	authHeader := strings.TrimSpace(req.ginCtx.GetHeader("Authorization"))
	if req.allowUnauthorized && authHeader == "" {
		return nil
	}
	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || token == "" {
		return Unauthorized(errors.Wrap(identity.ErrUnauthenticated, "missing bearer token"))
	}
	user, err := provider.Authenticate(ctx, token)
	if err != nil {
		return Unauthorized(err)
	}
	req.AuthenticatedUser = user

	return nil
}

func (req *Request[REQ, RESP]) processErrorResponse(ctx context.Context, failure *Response[ErrorResponse]) (int, *ErrorResponse) {
	err := failure.Data.InternalErr()
	if req.ginCtx.Request.Context().Err() != nil && errors.Is(err, req.ginCtx.Request.Context().Err()) {
		return http.StatusServiceUnavailable, &ErrorResponse{Error: "service is shutting down"}
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return http.StatusGatewayTimeout, &ErrorResponse{Error: "request timed out"}
	}
	if failure.Code <= 0 {
		return http.StatusInternalServerError, &ErrorResponse{Error: "oops, something went wrong"}
	}

	return failure.Code, failure.Data
}
