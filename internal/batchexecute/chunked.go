package batchexecute

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// parseChunkedResponse parses a chunked response from the batchexecute API.
// The body (after the )]}' prefix) is a sequence of JSON values:
//
//	<chunk-length>
//	<chunk-data>
//	<chunk-length>
//	<chunk-data>
//	...
//
// The declared lengths count UTF-16 code units, so they are not used to
// frame the data; each chunk is read as a complete JSON value instead. A
// body consisting of a bare number is an error code and is returned as a
// synthetic response with ID "numeric".
func parseChunkedResponse(r io.Reader) ([]Response, error) {
	dec := json.NewDecoder(r)
	var (
		envelopes [][]any
		lastNum   json.Number
	)
	dec.UseNumber()
	for {
		var v any
		err := dec.Decode(&v)
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(envelopes) > 0 {
				break
			}
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		switch v := v.(type) {
		case json.Number:
			lastNum = v
		case []any:
			envelopes = append(envelopes, toEnvelopes(v)...)
		}
	}

	responses := extractResponses(envelopes)
	if len(responses) > 0 {
		return responses, nil
	}
	if lastNum != "" && len(envelopes) == 0 {
		if _, err := strconv.Atoi(lastNum.String()); err == nil {
			return []Response{{ID: "numeric", Data: json.RawMessage(lastNum.String())}}, nil
		}
	}
	return nil, errors.New("no valid responses found")
}

// toEnvelopes normalises a chunk to a list of envelopes. Chunks are usually
// a list of envelopes, but a single bare envelope is accepted too.
func toEnvelopes(chunk []any) [][]any {
	if len(chunk) > 0 {
		if _, ok := chunk[0].(string); ok {
			return [][]any{chunk}
		}
	}
	var out [][]any
	for _, item := range chunk {
		if env, ok := item.([]any); ok {
			out = append(out, env)
		}
	}
	return out
}

// extractResponses extracts Response objects from wrb.fr envelopes,
// ignoring bookkeeping entries such as "di", "af.httprm" and "e".
//
// Envelope layout: ["wrb.fr", rpcID, data, null, null, status, index].
// When data is null the status slot (usually a one-element error code
// list) is returned instead.
func extractResponses(envelopes [][]any) []Response {
	var responses []Response
	for _, env := range envelopes {
		if len(env) < 3 {
			continue
		}
		if kind, _ := env[0].(string); kind != "wrb.fr" {
			continue
		}
		id, ok := env[1].(string)
		if !ok {
			continue
		}
		resp := Response{ID: id}

		payload := env[2]
		if payload == nil && len(env) > 5 {
			payload = env[5]
		}
		switch data := payload.(type) {
		case nil:
		case string:
			resp.Data = json.RawMessage(data)
		default:
			if raw, err := json.Marshal(data); err == nil {
				resp.Data = raw
			}
		}

		if len(env) > 6 {
			if idx, ok := env[6].(string); ok && idx != "generic" {
				resp.Index, _ = strconv.Atoi(idx)
			}
		}

		if resp.ID == "error" && resp.Data != nil {
			var errorData []struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(resp.Data, &errorData); err == nil && len(errorData) > 0 {
				resp.Error = errorData[0].Error
			}
		}
		responses = append(responses, resp)
	}
	return responses
}
