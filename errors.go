package snapfetch

import "fmt"

// UnknownPeerError is returned when a fetch targets a peer id that is not
// present in the registry. No network call is made in that case.
type UnknownPeerError struct {
	PeerId string
}

func (e *UnknownPeerError) Error() string {
	return fmt.Sprintf("unknown peer %q", e.PeerId)
}

// TransferError is returned when the HTTP exchange with the leader fails,
// either because the leader responded with a non-2xx status (Status != 0)
// or because of a connectivity/timeout failure (Cause != nil).
type TransferError struct {
	PeerId   string
	Endpoint string
	Status   int
	Cause    error
}

func (e *TransferError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("checkpoint transfer from %s (%s) failed: %v", e.PeerId, e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("checkpoint transfer from %s (%s) failed with status %d", e.PeerId, e.Endpoint, e.Status)
}

func (e *TransferError) Unwrap() error {
	return e.Cause
}

// MissingMetadataError is returned when a 2xx checkpoint response lacks a
// required metadata header, or carries one that does not parse as a
// non-negative decimal integer (Value is empty when the header is absent).
type MissingMetadataError struct {
	Endpoint string
	Header   string
	Value    string
}

func (e *MissingMetadataError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("response from %s is missing the %s header", e.Endpoint, e.Header)
	}
	return fmt.Sprintf("response from %s has a malformed %s header: %q", e.Endpoint, e.Header, e.Value)
}

// ExtractionError is returned when a downloaded archive cannot be unpacked
// because it is corrupt, truncated or otherwise malformed.
type ExtractionError struct {
	Archive string
	Cause   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// FilesystemError is returned for local I/O faults: failed writes, permission
// problems, or a staging directory that already exists.
type FilesystemError struct {
	Path  string
	Op    string
	Cause error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *FilesystemError) Unwrap() error {
	return e.Cause
}
