package server

import (
	"net/http"
	"sort"
	"strings"
)

// methodRoutes maps HTTP methods to handlers for one path
type methodRoutes map[string]http.HandlerFunc

// dispatch calls the handler registered for r.Method, or answers 405 with an
// Allow header listing the registered methods.
func (m methodRoutes) dispatch(w http.ResponseWriter, r *http.Request) {
	if handler, ok := m[r.Method]; ok && handler != nil {
		handler(w, r)
		return
	}

	allowed := make([]string, 0, len(m))
	for method, handler := range m {
		if handler != nil {
			allowed = append(allowed, method)
		}
	}
	sort.Strings(allowed)

	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
