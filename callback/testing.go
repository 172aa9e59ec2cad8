package callback

import (
	"encoding/json"
	"net/http"

	"github.com/oidc-kit/implicit"
)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(state string, t *implicit.TokenCallback, w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful"))
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(state string, r *implicit.ErrorCallback, e error, w http.ResponseWriter, req *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		j, _ := json.Marshal(&implicit.ErrorCallback{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&implicit.ErrorCallback{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}
