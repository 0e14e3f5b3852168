// Raw request/response access for OpenAI-compatible endpoints.
//
// Information Hiding:
// - go-openai's typed request cannot express vendor fields (thinking toggles,
//   reasoning payloads on history messages); they are patched into the JSON body here
// - the raw response body is captured so fields unknown to go-openai can be read

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/sjson"
)

// bodyPatch sets one JSON path in the outgoing request body.
type bodyPatch struct {
	path  string
	value json.RawMessage
}

// exchange carries patches for one request and receives the raw response.
type exchange struct {
	patches  []bodyPatch
	response []byte
}

func (e *exchange) set(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	e.patches = append(e.patches, bodyPatch{path: path, value: raw})
	return nil
}

func (e *exchange) setRaw(path string, value json.RawMessage) {
	e.patches = append(e.patches, bodyPatch{path: path, value: value})
}

type exchangeKey struct{}

func withExchange(ctx context.Context, ex *exchange) context.Context {
	return context.WithValue(ctx, exchangeKey{}, ex)
}

func exchangeFrom(ctx context.Context) *exchange {
	ex, _ := ctx.Value(exchangeKey{}).(*exchange)
	return ex
}

// patchingDoer applies the exchange found on the request context.
// Requests without an exchange pass through untouched.
type patchingDoer struct {
	next openai.HTTPDoer
}

// Do implements openai.HTTPDoer.
func (d patchingDoer) Do(req *http.Request) (*http.Response, error) {
	ex := exchangeFrom(req.Context())
	if ex == nil {
		return d.next.Do(req)
	}

	if req.Body != nil && len(ex.patches) > 0 {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		for _, p := range ex.patches {
			body, err = sjson.SetRawBytes(body, p.path, p.value)
			if err != nil {
				return nil, fmt.Errorf("failed to patch request field %s: %w", p.path, err)
			}
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	resp, err := d.next.Do(req)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	ex.response = data
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}
