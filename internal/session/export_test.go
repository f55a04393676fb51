package session

import "net/http"

// TransportOf returns the round tripper a session's client uses.
func TransportOf(s Session) http.RoundTripper {
	return s.(*httpSession).client.Transport
}
