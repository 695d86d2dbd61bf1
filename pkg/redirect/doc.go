// Package redirect implements the redirect protocol shared by document and
// snapshot responses.
//
// A redirect target is one of three cases: a literal URL string, a structured
// location.URL, or Back ("return to the referring page"). Resolve turns any
// target into a canonical Resolution before a transport decides how to
// deliver it:
//
//   - document responses get an ordinary 302 to Resolution.Location;
//   - snapshot responses get status 200, a Content-Location header carrying
//     the location, and a body that is either the text "back" or the encoded
//     location.URL, so an in-app client can route without a second round
//     trip.
//
// Interpret is the client half: it reads such a response back into an
// Instruction telling the navigator what to do.
package redirect
