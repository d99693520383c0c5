// file: internal/wire/codec.go
package wire

import (
	"bytes"
	_ "embed" // schema.json is embedded at build time.
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/tokenizesrv/internal/logging"
	"github.com/dkoosis/tokenizesrv/internal/sessionerr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var embeddedSchema []byte

const schemaResourceID = "tokenize-server://schema.json"

// Codec compiles the request/response schemas once and decodes/encodes
// wire messages against them.
type Codec struct {
	requestSchema  *jsonschema.Schema
	responseSchema *jsonschema.Schema
	debug          bool
	logger         logging.Logger
}

// NewCodec compiles the embedded schema. debug, when true, enables the
// self-check that validates every outgoing response before it is written
// (spec.md's "debug-mode self-check"). cmd/tokenizesrv turns it on only
// when --verbose is given; the tests always turn it on.
func NewCodec(debug bool, logger logging.Logger) (*Codec, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(schemaResourceID, bytes.NewReader(embeddedSchema)); err != nil {
		return nil, errors.Wrap(err, "wire: failed to add schema resource")
	}

	reqSchema, err := compiler.Compile(schemaResourceID + "#/definitions/request")
	if err != nil {
		return nil, errors.Wrap(err, "wire: failed to compile request schema")
	}
	respSchema, err := compiler.Compile(schemaResourceID + "#/definitions/response")
	if err != nil {
		return nil, errors.Wrap(err, "wire: failed to compile response schema")
	}

	return &Codec{
		requestSchema:  reqSchema,
		responseSchema: respSchema,
		debug:          debug,
		logger:         logger.WithField("component", "wire_codec"),
	}, nil
}

// Decode parses one complete JSON document (no trailing delimiter) and
// validates it against whichever of the two accepted schema shapes its
// declared version selects. It never returns a PartialData-category
// error; that policy lives entirely in the handler/session, not here.
func (c *Codec) Decode(data []byte) (*RequestMessage, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, sessionerr.NewBadMessage("bad message", err)
	}

	if err := c.requestSchema.Validate(raw); err != nil {
		return nil, sessionerr.NewBadMessage("bad message", err)
	}

	// Schema validation already guarantees shape; a second, typed
	// unmarshal gives us a concrete RequestMessage without re-deriving
	// field access by hand from interface{}.
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil || len(tuple) != 2 {
		return nil, sessionerr.NewBadMessage("bad message", err)
	}

	var msgNum int64
	if err := json.Unmarshal(tuple[0], &msgNum); err != nil {
		return nil, sessionerr.NewBadMessage("bad message", err)
	}

	var body struct {
		Version        Version         `json:"version"`
		ID             json.RawMessage `json:"id"`
		BufType        string          `json:"buf_type"`
		BufName        string          `json:"buf_name"`
		BufBody        string          `json:"buf_body"`
		AdditionalInfo string          `json:"additional_info"`
	}
	if err := json.Unmarshal(tuple[1], &body); err != nil {
		return nil, sessionerr.NewBadMessage("bad message", err)
	}

	req := &RequestMessage{
		MsgNum:         msgNum,
		Version:        body.Version,
		BufType:        body.BufType,
		BufName:        body.BufName,
		BufBody:        body.BufBody,
		AdditionalInfo: body.AdditionalInfo,
	}

	switch body.Version {
	case V1:
		if err := json.Unmarshal(body.ID, &req.IDInt); err != nil {
			return nil, sessionerr.NewBadMessage("bad message", err)
		}
	case V11:
		if err := json.Unmarshal(body.ID, &req.IDStr); err != nil {
			return nil, sessionerr.NewBadMessage("bad message", err)
		}
	default:
		// Unreachable given schema validation above (version is a closed
		// const enum), but kept so the switch stays exhaustive under review.
		return nil, sessionerr.NewBadMessage("bad message: unsupported version", nil)
	}

	return req, nil
}

// Encode appends resp's wire representation, as a single JSON document
// with no trailing delimiter, to sink. The session/handler is responsible
// for appending the framing delimiter afterward.
func (c *Codec) Encode(resp ResponseMessage, sink *[]byte) error {
	var idValue interface{}
	switch resp.Version {
	case V1:
		idValue = resp.IDInt
	case V11:
		idValue = resp.IDStr
	default:
		idValue = resp.IDStr
	}

	tokens := resp.Tokens
	if tokens == nil {
		tokens = map[string][]TokenLocation{}
	}
	tokenArrays := make(map[string][][3]int, len(tokens))
	for group, locs := range tokens {
		arr := make([][3]int, len(locs))
		for i, loc := range locs {
			arr[i] = [3]int{loc.Row, loc.Column, loc.Length}
		}
		tokenArrays[group] = arr
	}

	body := map[string]interface{}{
		"version":       resp.Version,
		"id":            idValue,
		"buf_type":      resp.BufType,
		"buf_name":      resp.BufName,
		"return_code":   resp.ReturnCode,
		"error_message": resp.ErrorMessage,
		"tokens":        tokenArrays,
	}
	doc := []interface{}{resp.MsgNum, body}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return sessionerr.NewFatal("failed to marshal response", err)
	}

	if c.debug {
		var instance interface{}
		if err := json.Unmarshal(encoded, &instance); err != nil {
			return sessionerr.NewFatal("debug self-check: re-unmarshal of encoded response failed", err)
		}
		if err := c.responseSchema.Validate(instance); err != nil {
			c.logger.Error("debug self-check: outgoing response failed schema validation", "error", err)
			return sessionerr.NewFatal("debug self-check: outgoing response violates schema", err)
		}
	}

	*sink = append(*sink, encoded...)
	return nil
}

// IDAsInt parses a decimal string id into an integer. Encode does not
// call it: Encode takes IDInt or IDStr according to resp.Version, and the
// handler always echoes the version it decoded.
func IDAsInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
