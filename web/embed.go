// Package web embeds the dashboard's templates and static assets.
package web

import "embed"

// TemplatesFS holds the page and partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the calendar script.
//
//go:embed static/*
var StaticFS embed.FS
