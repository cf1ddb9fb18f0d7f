// ABOUTME: Package web serves the records gateway's HTTP surface
// ABOUTME: chi router with the auth gate, access policy, JSON API, and server-rendered pages

// Package web wires the authentication gate and access policy in front of the
// HTTP handlers.
//
// Every request passes through the gate and then the policy before reaching a
// handler, so handlers on protected routes can rely on auth.MustPrincipal.
// API handlers answer with the {success, message, data, timestamp} envelope;
// failures are translated from apperr kinds in one place (writeError).
// Page handlers render html/template pages from the embedded templates,
// with static copy authored in Markdown and rendered through goldmark.
package web
