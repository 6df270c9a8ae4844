// Package transport issues batch requests against a JSON REST API.
//
// [HTTPRequester] implements batch.Requester. Each request becomes a GET on
// BaseURL+Path with the parameters encoded in the query string; list values
// are sent as repeated parameters. Responses must be 2xx with a JSON body.
//
// # Usage
//
//	r := transport.NewHTTPRequester(&http.Client{Timeout: 15 * time.Second}, transport.Config{
//	    BaseURL:   "https://sentry.example.com",
//	    AuthToken: token,
//	}, logger)
//
//	b := batch.New(ctx, r)
//
// Any type with a Do(*http.Request) method can stand in for *http.Client.
package transport
