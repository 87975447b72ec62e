package daemon

import "net/http"

// Peer upgrades to a websocket and streams sync messages. The hub sends the
// full document snapshot first so a late-joining surface catches up before
// incremental splices arrive.
func (a *API) Peer(w http.ResponseWriter, r *http.Request) {
	if a.Hub == nil {
		writeServiceError(w, unavailableError("peer hub not running", nil))
		return
	}
	a.Hub.ServeHTTP(w, r)
}
