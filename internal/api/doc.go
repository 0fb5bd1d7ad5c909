// Package api exposes the HTTP interface for the portal service: the client
// surface for uploads and order tracking, the admin surface for driving the
// order lifecycle, and the provider callback endpoint.
package api
