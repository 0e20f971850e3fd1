package snapfetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
)

const (
	// HeaderSnapshotLogIndex and HeaderSnapshotLogTerm tag a checkpoint
	// response with the log position the checkpoint represents. Both are
	// required on every 2xx response and carry non-negative decimal integers.
	HeaderSnapshotLogIndex = "snapshot-log-index"
	HeaderSnapshotLogTerm  = "snapshot-log-term"
)

// Identity is the credential context a fetch runs under. It is passed
// explicitly per call instead of being read from ambient process state.
// Token is the negotiated auth token, consumed only when kerberos auth is
// configured.
type Identity struct {
	User  string
	Token string
}

// CheckpointResponse is a successful (2xx) exchange with a leader's
// checkpoint endpoint. The caller owns Body and must close it.
type CheckpointResponse struct {
	Endpoint string
	Status   int
	Header   http.Header
	Body     io.ReadCloser
}

// LogPosition parses the required metadata headers. It fails with
// MissingMetadataError if either is absent or not a non-negative integer.
func (r *CheckpointResponse) LogPosition() (index, term int64, err error) {
	index, err = r.headerInt64(HeaderSnapshotLogIndex)
	if err != nil {
		return 0, 0, err
	}
	term, err = r.headerInt64(HeaderSnapshotLogTerm)
	if err != nil {
		return 0, 0, err
	}
	return index, term, nil
}

func (r *CheckpointResponse) headerInt64(name string) (int64, error) {
	value := r.Header.Get(name)
	if value == "" {
		return -1, &MissingMetadataError{Endpoint: r.Endpoint, Header: name}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return -1, &MissingMetadataError{Endpoint: r.Endpoint, Header: name, Value: value}
	}
	return n, nil
}

// TransferClient performs one authenticated GET exchange per fetch. It holds
// no per-call state and is safe for concurrent use.
type TransferClient struct {
	http     *http.Client
	authType AuthType
}

func NewTransferClient(config Config) *TransferClient {
	connect, request := config.TimeoutsWithDefaults()
	return &TransferClient{
		authType: config.AuthType,
		http: &http.Client{
			Timeout: request,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connect}).DialContext,
				TLSHandshakeTimeout: connect,
			},
		},
	}
}

// Fetch issues the GET under the given identity. Statuses 200 and 201 are
// successful; any other status or a connectivity/timeout failure yields a
// TransferError. Fetch persists nothing itself.
func (c *TransferClient) Fetch(ctx context.Context, endpoint string, identity Identity) (*CheckpointResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransferError{Endpoint: endpoint, Cause: err}
	}

	if identity.User != "" {
		q := req.URL.Query()
		q.Set("user.name", identity.User)
		req.URL.RawQuery = q.Encode()
	}
	if c.authType == AuthKerberos && identity.Token != "" {
		req.Header.Set("Authorization", "Negotiate "+identity.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &TransferError{Endpoint: endpoint, Cause: err}
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		res.Body.Close()
		return nil, &TransferError{Endpoint: endpoint, Status: res.StatusCode}
	}
	return &CheckpointResponse{
		Endpoint: endpoint,
		Status:   res.StatusCode,
		Header:   res.Header,
		Body:     res.Body,
	}, nil
}
