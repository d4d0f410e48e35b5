// Package service holds the business operations behind the HTTP handlers.
//
// Services combine repositories, the session manager and the job queue.
// They return repository and session sentinels unchanged; the global error
// handler maps them to client responses.
package service
