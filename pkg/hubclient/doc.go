// Package hubclient builds hub.Client values.
//
// It normalizes a hub.Config, wires one transport shared by the token
// manager and the request executor, and returns a client with its own
// session. Two clients never share a token.
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
//	  cli, err := hubclient.NewWithAPIKey("integrate.example.com", "my-key")
//	  if err != nil { log.Fatal(err) }
//
//	  if !cli.Authenticate(ctx) {
//	    log.Fatal("API key refused")
//	  }
//
//	  notifications, err := cli.Consume(ctx, "", 0)
//	  if err != nil { log.Fatal(err) }
//	  log.Println(len(notifications))
//	}
//
// A CLI or any short-lived process can keep its session across runs with
// NewWithSavedToken and a TokenPersister.
package hubclient
