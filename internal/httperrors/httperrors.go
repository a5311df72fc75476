package httperrors

import (
	"fmt"
	"net/http"

	"github.com/meridianhq/tenantgate/internal/errortracking"
	"github.com/meridianhq/tenantgate/internal/logging"
)

type content struct {
	status       int
	title        string
	statusString string
	header       string
	subHeader    string
}

var (
	contentTenantNotFound = content{
		http.StatusNotFound,
		"Tenant not found (404)",
		"404",
		"Tenant not found.",
		`<p>The workspace you are attempting to access does not exist or is no longer available.</p>
     <p>Make sure the address is correct and that the workspace hasn't moved.</p>
     <p>Please contact your administrator if you think this is a mistake.</p>`,
	}
	content429 = content{
		http.StatusTooManyRequests,
		"Too many requests (429)",
		"429",
		"Too many requests.",
		`<p>The resource that you are attempting to access is being rate limited.</p>`,
	}
	content502 = content{
		http.StatusBadGateway,
		"Something went wrong (502)",
		"502",
		"Whoops, something went wrong on our end.",
		`<p>Try refreshing the page, or going back and attempting the action again.</p>
     <p>Please contact your administrator if this problem persists.</p>`,
	}
)

const predefinedErrorPage = `
<!DOCTYPE html>
<html>
<head>
  <meta content="width=device-width, initial-scale=1, maximum-scale=1" name="viewport">
  <title>%v</title>
  <style>
    body {
      color: #666;
      text-align: center;
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      margin: auto;
      font-size: 14px;
    }

    h1 {
      font-size: 56px;
      line-height: 100px;
      font-weight: 400;
      color: #456;
    }

    h3 {
      color: #456;
      font-size: 20px;
      font-weight: 400;
      line-height: 28px;
    }

    hr {
      max-width: 800px;
      margin: 18px auto;
      border: 0;
      border-top: 1px solid #EEE;
      border-bottom: 1px solid white;
    }

    .container {
      margin: auto 20px;
    }
  </style>
</head>

<body>
  <h1>
    %v
  </h1>
  <div class="container">
    <h3>%v</h3>
    <hr />
    %v
  </div>
</body>
</html>
`

func generateErrorHTML(c content) string {
	return fmt.Sprintf(predefinedErrorPage, c.title, c.statusString, c.header, c.subHeader)
}

func serveErrorPage(w http.ResponseWriter, c content) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(c.status)
	fmt.Fprintln(w, generateErrorHTML(c))
}

// ServeTenantNotFound returns the fixed 404 page shown for requests that
// could not be attributed to any tenant. The requested URL is preserved, no
// redirect happens.
func ServeTenantNotFound(w http.ResponseWriter) {
	serveErrorPage(w, contentTenantNotFound)
}

// Serve429 returns a 429 error response / HTML page to the http.ResponseWriter
func Serve429(w http.ResponseWriter) {
	serveErrorPage(w, content429)
}

// Serve502WithRequest logs the failure, reports it to error tracking and
// returns a 502 error response / HTML page to the http.ResponseWriter
func Serve502WithRequest(w http.ResponseWriter, r *http.Request, reason string, err error) {
	logging.LogRequest(r).WithError(err).Error(reason)
	errortracking.CaptureErrWithReqAndStackTrace(err, r, errortracking.WithField("host", r.Host))
	serveErrorPage(w, content502)
}
