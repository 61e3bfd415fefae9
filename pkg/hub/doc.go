// Package hub provides types, interfaces, and helpers for working with the
// integration hub REST API.
//
// # Overview
//
// The hub exposes versioned JSON resources under "api/{resource}" and a
// change-notification queue under "publish" and "consume". Access is granted
// by exchanging a static API key for a short-lived bearer token at "auth".
//
// The hub package defines the public contract: the Client interface, the
// Resource capability interface implemented by domain entities, the
// Envelope returned by reads, ordered Query parameters, ChangeNotification,
// and the error categories. A concrete client is built by the hubclient
// package:
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/hubclient/pkg/hub"
//	  "github.com/fivetwenty-io/hubclient/pkg/hubclient"
//	)
//
//	func example(ctx context.Context) {
//	  cli, err := hubclient.New(&hub.Config{
//	    BaseURI: "https://integrate.example.com/",
//	    APIKey:  "my-key",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  page, err := cli.GetAll(ctx, "persons", nil, 0, 25, "application/vnd.hedtech.integration.v12+json")
//	  if err != nil { log.Fatal(err) }
//	  log.Println(page.TotalCount, page.Version)
//	}
//
// # Entities
//
// Embed Entity in a struct and implement ResourceName. Override VersionType
// to pin a schema version. Create, Update and Delete are generic wrappers
// that decode the hub's answer into the same type:
//
//	type Person struct {
//	  hub.Entity
//	  Names []Name `json:"names"`
//	}
//
//	func (Person) ResourceName() string { return "persons" }
//
//	created, err := hub.Create(ctx, cli, &Person{})
//
// # Versions
//
// Versions are negotiated entirely through media types: the Accept header
// carries the requested version and the X-Media-Type response header the
// version served. There is no version in the URL.
//
// # Errors
//
// Failures match one of ErrInvalidArgument, ErrUnauthenticated,
// ErrRequestFailed or ErrMalformedResponse with errors.Is. RequestError
// carries the HTTP status. Nothing is retried; retry policy belongs to the
// caller.
package hub
