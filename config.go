package snapfetch

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy controls which schemes may be used to reach a peer's checkpoint
// endpoint.
type Policy int

const (
	PolicyHTTP Policy = iota
	PolicyHTTPS
	PolicyHTTPAndHTTPS
)

func (p Policy) String() string {
	switch p {
	case PolicyHTTP:
		return "HTTP"
	case PolicyHTTPS:
		return "HTTPS"
	case PolicyHTTPAndHTTPS:
		return "HTTP_AND_HTTPS"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "HTTP":
		return PolicyHTTP, nil
	case "HTTPS":
		return PolicyHTTPS, nil
	case "HTTP_AND_HTTPS":
		return PolicyHTTPAndHTTPS, nil
	default:
		return PolicyHTTP, fmt.Errorf("invalid http policy %q", s)
	}
}

// AuthType selects how the transfer client authenticates to the leader.
type AuthType int

const (
	AuthSimple AuthType = iota
	AuthKerberos
)

func (a AuthType) String() string {
	switch a {
	case AuthSimple:
		return "simple"
	case AuthKerberos:
		return "kerberos"
	default:
		return fmt.Sprintf("AuthType(%d)", int(a))
	}
}

func ParseAuthType(s string) (AuthType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return AuthSimple, nil
	case "kerberos":
		return AuthKerberos, nil
	default:
		return AuthSimple, fmt.Errorf("invalid auth type %q", s)
	}
}

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 60 * time.Second
)

type Config struct {
	// StagingRoot is the directory under which temp archives and per-attempt
	// staging directories are created. Temp archives share this root so the
	// archive and its extracted tree live on the same filesystem.
	StagingRoot string

	// ConnectTimeout bounds connection establishment, RequestTimeout the whole
	// exchange. Zero values fall back to DefaultConnectTimeout and
	// DefaultRequestTimeout.
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	Policy   Policy
	AuthType AuthType
	Logger   *zap.Logger
}

func (c Config) Validate() error {
	if c.StagingRoot == "" {
		return fmt.Errorf("StagingRoot is required")
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("ConnectTimeout must be non-negative: %v", c.ConnectTimeout)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("RequestTimeout must be non-negative: %v", c.RequestTimeout)
	}
	if c.Policy < PolicyHTTP || c.Policy > PolicyHTTPAndHTTPS {
		return fmt.Errorf("invalid Policy: %v", c.Policy)
	}
	if c.AuthType < AuthSimple || c.AuthType > AuthKerberos {
		return fmt.Errorf("invalid AuthType: %v", c.AuthType)
	}
	return nil
}

func (c Config) LoggerOrNoop() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c Config) TimeoutsWithDefaults() (connect, request time.Duration) {
	// Return configured timeouts, filling in zeros with defaults.
	connect = c.ConnectTimeout
	if connect == 0 {
		connect = DefaultConnectTimeout
	}
	request = c.RequestTimeout
	if request == 0 {
		request = DefaultRequestTimeout
	}
	return connect, request
}

func (c Config) String() string {
	return fmt.Sprintf(
		"Config{StagingRoot: %s, ConnectTimeout: %v, RequestTimeout: %v, Policy: %v, AuthType: %v}",
		c.StagingRoot, c.ConnectTimeout, c.RequestTimeout, c.Policy, c.AuthType)
}

// ParsePeerList parses an inline peer list with the format
// "id=host:port,id=host:port,...".
func ParsePeerList(s string) ([]PeerNode, error) {
	var peers []PeerNode
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid entry %q: expected 'id=host:port'", entry)
		}

		node, err := parseHostPort(parts[0], parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid entry %q: %w", entry, err)
		}
		peers = append(peers, node)
	}
	return peers, nil
}
