// Package web embeds the HTML pages and static assets served by cmd/gastos.
package web

import "embed"

// TemplatesFS holds index.html and login.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the scripts and stylesheet under /static/.
//
//go:embed static/*
var StaticFS embed.FS
