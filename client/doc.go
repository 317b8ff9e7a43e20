// Package client provides a high-level API for the Metasploit MSGRPC service.
//
// It handles:
//   - Session authentication (auth.login) and token bookkeeping
//   - Request layout and MessagePack encoding
//   - Decoding and normalizing responses
//
// # Quick Start
//
//	c, err := client.New(client.Config{
//	    Host:     "192.168.9.225",
//	    Port:     55553,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Login(ctx, "msf", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := c.Call(ctx, "module.exploits")
//
// # Errors
//
// Call and Login return *Error. Its Kind is one of KindAuthRequired,
// KindAuthFailed, KindTransport or KindCodec; match it with errors.Is:
//
//	if errors.Is(err, client.ErrAuthRequired) {
//	    // log in and retry
//	}
//
// Errors reported by the server (an "error": true map) are not converted;
// Call returns them as the response value. codec.CheckFault turns such a
// value into an error.
package client
