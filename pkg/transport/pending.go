package transport

import (
	"bytes"
	"io"
	"net/http"
)

// pendingRequest tracks one logical request across its first attempt and at
// most one retry.
type pendingRequest struct {
	req     *http.Request
	body    []byte
	getBody func() (io.ReadCloser, error)

	// sentAccess is the access credential attached to the latest attempt.
	sentAccess string
	retried    bool
}

// newPendingRequest takes ownership of req.Body so the request can be sent
// more than once.
func newPendingRequest(req *http.Request) (*pendingRequest, error) {
	p := &pendingRequest{req: req}
	if req.Body == nil || req.Body == http.NoBody {
		return p, nil
	}
	defer req.Body.Close()

	if req.GetBody != nil {
		p.getBody = req.GetBody
		return p, nil
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	p.body = body
	return p, nil
}

// attempt builds a fresh outgoing copy of the original request.
func (p *pendingRequest) attempt() (*http.Request, error) {
	out := p.req.Clone(p.req.Context())
	switch {
	case p.getBody != nil:
		body, err := p.getBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	case p.body != nil:
		out.Body = io.NopCloser(bytes.NewReader(p.body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(p.body)), nil
		}
		out.ContentLength = int64(len(p.body))
	}
	return out, nil
}
