// Package ready provides the one-shot readiness barrier that holds requests
// until the rendering engine has finished preparing.
//
// A Future is a single-assignment completion value: it is settled at most
// once, by Complete or Fail, and any number of goroutines may Wait on it
// before or after it settles. A Gate owns a Future together with the init
// function that settles it, and guarantees the init function runs exactly
// once no matter how many callers ask for it.
//
//	gate := ready.NewGate(engine.Prepare)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    if err := gate.Wait(r.Context()); err != nil {
//	        http.Error(w, "not ready", http.StatusServiceUnavailable)
//	        return
//	    }
//	    // render...
//	}
//
// A failed initialization is never retried. Every current and future waiter
// receives the same error.
package ready
