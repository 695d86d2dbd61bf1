// Package client fetches page state the way an in-app navigation does.
//
// A page initializer runs in one of two places. During a server render the
// state is already on the request context and is copied out. During client
// navigation the state is fetched from the same route with the snapshot
// signal, so the server answers with data instead of a document:
//
//	f := client.New("https://example.com", client.Config{Fetch: "header"})
//	res := f.GetInitialState(ctx, client.Navigation{AsPath: "/posts/1"}, client.Options{})
//	state, err := res.Unwrap()
//	if client.IsCancelled(err) {
//	    return nil // a redirect took over
//	}
//
// Snapshot redirects (a 200 carrying Content-Location) are followed through a
// Navigator and reported as a Cancelled result, never as an error.
package client
