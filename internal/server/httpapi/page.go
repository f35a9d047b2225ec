package httpapi

import (
	"bytes"
	"html/template"
	"net/http"
)

// redirectPage sends the browser to the destination three ways: script,
// meta refresh and a visible link. All three carry the same URL.
var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="referrer" content="no-referrer">
<meta http-equiv="refresh" content="0;url={{.URL}}">
<title>Redirecting</title>
<script>window.location.replace({{.URL}});</script>
</head>
<body>
<p>Redirecting&hellip; If nothing happens, <a id="fallback" href="{{.URL}}">tap here</a>.</p>
</body>
</html>
`))

func writeRedirectPage(w http.ResponseWriter, dest string) error {
	var buf bytes.Buffer
	if err := redirectPage.Execute(&buf, struct{ URL string }{dest}); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}
