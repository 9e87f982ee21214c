// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// GetVersion returns one version.
func (a *API) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := a.editor.Version(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ExportVersion downloads a version. The format query parameter selects
// "html" (default), "mjml" or "json".
func (a *API) ExportVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	exp, err := a.editor.Export(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body, contentType, filename string
	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		body, contentType, filename = exp.HTML, "text/html; charset=utf-8", exp.Filename
	case "mjml":
		body, contentType = exp.MJML, "text/plain; charset=utf-8"
		filename = strings.TrimSuffix(exp.Filename, ".html") + ".mjml"
	case "json":
		writeJSON(w, http.StatusOK, exp)
		return
	default:
		invalid(w, fmt.Sprintf("Unknown export format %q.", format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// PublishVersion uploads a version's HTML to object storage.
func (a *API) PublishVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pub, err := a.editor.Publish(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pub)
}
