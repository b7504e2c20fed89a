package relayer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const maxResponseBytes = 4 << 20

// post sends body as JSON to path and returns the raw 2xx response body.
// Non-2xx responses become *RelayerError.
func (s *service) post(ctx context.Context, path string, body any) (respBody []byte, err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveRelayerRequest(endpointLabel(path), started, err)
	}()

	payload, err := encodeJSON(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode relayer request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create relayer request")
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set(HeaderRelayerKey, s.apiKey)
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reach relayer at %s", path)
	}
	defer res.Body.Close()

	respBody, err = io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read relayer response")
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, newRelayerError(res.StatusCode, respBody)
	}

	return respBody, nil
}

func endpointLabel(path string) string {
	return strings.TrimPrefix(path[strings.LastIndex(path, "/"):], "/")
}
