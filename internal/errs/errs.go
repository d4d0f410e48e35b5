// Package errs defines the error shapes written to API clients.
//
// Every failure leaving a handler is converted into an *HTTPError so clients
// get a consistent JSON body: a machine code, a message that never contains
// driver text, optional field errors for forms, and an optional Action such
// as "redirect to the login page".
package errs
